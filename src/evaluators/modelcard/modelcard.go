// Package modelcard implements the documentation/model-card quality
// evaluator: scores a structured model_card object across nine required
// sections.
package modelcard

import (
	"context"
	"fmt"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
)

const name = "model_card"

type modelCardSection struct {
	key              string
	weight           float64
	subsections      []string
	euAIActReference string
}

// sections mirrors EU AI Act Article 11(1)(a-i)'s technical-documentation
// requirements, one section per sub-point.
var sections = []modelCardSection{
	{key: "model_details", weight: 0.15, subsections: []string{"overview", "version", "owners", "license"}, euAIActReference: "Article 11(1)(a) - General description of the AI system"},
	{key: "intended_use", weight: 0.12, subsections: []string{"primary_uses", "primary_users", "out_of_scope_uses"}, euAIActReference: "Article 11(1)(b) - Description of the intended purpose of the AI system"},
	{key: "factors", weight: 0.1, subsections: []string{"relevant_factors", "evaluation_factors"}, euAIActReference: "Article 11(1)(c) - Description of the elements of the AI system and the process for its development"},
	{key: "metrics", weight: 0.12, subsections: []string{"performance_measures", "decision_thresholds", "variation_approaches"}, euAIActReference: "Article 11(1)(d) - Description of the key design choices and assumptions made"},
	{key: "evaluation_data", weight: 0.1, subsections: []string{"datasets", "motivation", "preprocessing"}, euAIActReference: "Article 11(1)(e) - Description of the methods used to evaluate the AI system"},
	{key: "training_data", weight: 0.1, subsections: []string{"datasets", "motivation", "preprocessing"}, euAIActReference: "Article 11(1)(f) - Description of the data used to train and test the AI system"},
	{key: "quantitative_analyses", weight: 0.11, subsections: []string{"unitary_results", "intersectional_results"}, euAIActReference: "Article 11(1)(g) - Description of the performance metrics used to measure accuracy, robustness, and cybersecurity"},
	{key: "ethical_considerations", weight: 0.1, subsections: []string{"risks", "mitigations", "use_cases"}, euAIActReference: "Article 11(1)(h) - Description of the risks to fundamental rights"},
	{key: "caveats_recommendations", weight: 0.1, subsections: []string{"caveats", "recommendations"}, euAIActReference: "Article 11(1)(i) - Description of the risk management measures"},
}

// Evaluator scores a contract's context.model_card object.
type Evaluator struct {
	evaluator.BaseAsync
	threshold float64
}

// New builds a model-card Evaluator.
func New(cfg evaluator.Config) (evaluator.Evaluator, error) {
	e := &Evaluator{}
	if err := e.Initialize(e.DefaultConfig().Merge(cfg)); err != nil {
		return nil, err
	}
	return e, nil
}

// Name implements evaluator.Evaluator.
func (e *Evaluator) Name() string { return name }

// SupportedMetrics implements evaluator.Evaluator.
func (e *Evaluator) SupportedMetrics() []string {
	return []string{"model_card.score", "metrics.model_card.score", "documentation.score"}
}

// DefaultConfig implements evaluator.Evaluator.
func (e *Evaluator) DefaultConfig() evaluator.Config {
	return evaluator.Config{Threshold: 0.7}
}

// Initialize implements evaluator.Evaluator.
func (e *Evaluator) Initialize(cfg evaluator.Config) error {
	e.threshold = cfg.Threshold
	if e.threshold == 0 {
		e.threshold = 0.7
	}
	return nil
}

// Evaluate implements evaluator.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, c *contract.Contract) (*evalresult.EvaluationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("%s: nil contract", name)
	}

	raw, ok := c.Context["model_card"]
	if !ok {
		return evalresult.NewError(name, "no model card present", nil), nil
	}
	card, ok := raw.(map[string]any)
	if !ok {
		return evalresult.NewError(name, "model card is not a structured object", nil), nil
	}

	sectionScores := make(map[string]any, len(sections))
	euAIActReferences := make(map[string]any, len(sections))
	var missingSections []string
	var overall float64
	for _, s := range sections {
		sectionRaw, _ := card[s.key].(map[string]any)
		var subScores []float64
		for _, sub := range s.subsections {
			content, _ := sectionRaw[sub].(string)
			subScores = append(subScores, qualityScore(content))
		}
		score := mean(subScores)
		overall += s.weight * score
		sectionScores[s.key] = score
		euAIActReferences[s.key] = s.euAIActReference
		if score == 0.0 {
			missingSections = append(missingSections, s.key)
		}
	}

	compliant := overall >= e.threshold
	return &evalresult.EvaluationResult{
		EvaluatorName: name,
		Compliant:     compliant,
		Score:         overall,
		Threshold:     evalresult.Threshold(e.threshold),
		Reason:        reasonFor(compliant, overall, e.threshold),
		Details: map[string]any{
			"sections":            sectionScores,
			"missing_sections":    missingSections,
			"eu_ai_act_reference": euAIActReferences,
		},
	}, nil
}

// EvaluateAsync implements evaluator.Evaluator.
func (e *Evaluator) EvaluateAsync(ctx context.Context, c *contract.Contract) (*evalresult.EvaluationResult, error) {
	return e.RunAsync(ctx, name, func() (*evalresult.EvaluationResult, error) { return e.Evaluate(ctx, c) })
}

// ProjectReport implements evaluator.Evaluator.
func (e *Evaluator) ProjectReport(results map[string]*evalresult.EvaluationResult, format evalresult.Format) (*evalresult.Report, error) {
	return evalresult.Project(results, format)
}

func reasonFor(compliant bool, overall, threshold float64) string {
	if compliant {
		return fmt.Sprintf("model card score %.3f meets threshold %.3f", overall, threshold)
	}
	return fmt.Sprintf("model card score %.3f below threshold %.3f", overall, threshold)
}

// qualityScore derives a subsection's quality from its content length:
// missing / minimal / partial / comprehensive → 0.0 / 0.3 / 0.7 / 1.0.
func qualityScore(content string) float64 {
	length := len(content)
	switch {
	case length == 0:
		return 0.0
	case length < 40:
		return 0.3
	case length < 150:
		return 0.7
	default:
		return 1.0
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
