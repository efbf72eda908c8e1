// Package accuracy implements the hallucination/factual-consistency
// evaluator.
package accuracy

import (
	"context"
	"fmt"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/judge"
)

const name = "accuracy"

// Evaluator wraps the hallucination and factual-consistency LLM-judged
// criteria for each interaction.
type Evaluator struct {
	evaluator.BaseAsync
	hallucinationThreshold float64
	consistencyThreshold   float64
	model                  string
	j                      judge.Judge
}

// New builds an accuracy Evaluator.
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
	return []string{"accuracy.score", "metrics.accuracy.score", "accuracy.hallucination_score", "accuracy.factual_consistency_score"}
}

// DefaultConfig implements evaluator.Evaluator.
func (e *Evaluator) DefaultConfig() evaluator.Config {
	return evaluator.Config{
		Threshold:            0.7,
		UseMockIfUnavailable: true,
		Extras: map[string]any{
			"hallucination_threshold": 0.3,
			"consistency_threshold":   0.7,
		},
	}
}

// Initialize implements evaluator.Evaluator.
func (e *Evaluator) Initialize(cfg evaluator.Config) error {
	e.hallucinationThreshold = cfg.Float64("hallucination_threshold", 0.3)
	e.consistencyThreshold = cfg.Float64("consistency_threshold", 0.7)
	e.model = cfg.Model

	j, ok := judge.New(judge.Config{
		Endpoint:             cfg.String("judge_endpoint", ""),
		APIKey:               cfg.String("judge_api_key", ""),
		UseMockIfUnavailable: cfg.UseMockIfUnavailable,
	})
	if ok {
		e.j = j
	}
	return nil
}

// Evaluate implements evaluator.Evaluator. "Score" under the detector-style
// hallucination/consistency convention names here is already higher-is-better
// per judge.Result's documented polarity.
func (e *Evaluator) Evaluate(ctx context.Context, c *contract.Contract) (*evalresult.EvaluationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("accuracy: nil contract")
	}
	if e.j == nil {
		return evalresult.NewDependencyUnavailable(name, "accuracy judge"), nil
	}
	if len(c.Interactions) == 0 {
		return evalresult.NewError(name, "no interactions to evaluate", nil), nil
	}

	lowConfidence := len(contextOf(c)) == 0
	var minScores []float64
	interactionResults := make([]map[string]any, 0, len(c.Interactions))
	allCompliant := true

	for _, in := range c.Interactions {
		hallucination, err := e.j.JudgeCriterion(ctx, judge.Request{
			Criterion:  judge.CriterionHallucination,
			InputText:  in.InputText,
			OutputText: in.OutputText,
			Context:    contextOf(c),
			Model:      e.model,
		})
		if err != nil {
			interactionResults = append(interactionResults, map[string]any{"interaction_id": in.InteractionID, "error": err.Error()})
			continue
		}
		consistency, err := e.j.JudgeCriterion(ctx, judge.Request{
			Criterion:  judge.CriterionFactualConsistency,
			InputText:  in.InputText,
			OutputText: in.OutputText,
			Context:    contextOf(c),
			Model:      e.model,
		})
		if err != nil {
			interactionResults = append(interactionResults, map[string]any{"interaction_id": in.InteractionID, "error": err.Error()})
			continue
		}

		hasHallucination := hallucination.Score < e.hallucinationThreshold
		factuallyConsistent := consistency.Score >= e.consistencyThreshold
		compliant := !hasHallucination && factuallyConsistent
		if !compliant {
			allCompliant = false
		}

		exposed := min(hallucination.Score, consistency.Score)
		minScores = append(minScores, exposed)
		interactionResults = append(interactionResults, map[string]any{
			"interaction_id":       in.InteractionID,
			"hallucination_score":  hallucination.Score,
			"factual_consistency_score": consistency.Score,
			"has_hallucination":    hasHallucination,
			"factually_consistent": factuallyConsistent,
			"compliant":            compliant,
		})
	}

	aggregate := mean(minScores)
	reason := "all interactions passed hallucination and factual-consistency checks"
	if !allCompliant {
		reason = "one or more interactions failed hallucination or factual-consistency checks"
	}
	if lowConfidence {
		reason += " (no context provided: low-confidence result)"
	}

	return &evalresult.EvaluationResult{
		EvaluatorName: name,
		Compliant:     allCompliant,
		Score:         aggregate,
		Threshold:     evalresult.Threshold(e.consistencyThreshold),
		Reason:        reason,
		Details: map[string]any{
			"low_confidence":      lowConfidence,
			"interaction_results": interactionResults,
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

func contextOf(c *contract.Contract) []string {
	raw, ok := c.Context["context"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
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
