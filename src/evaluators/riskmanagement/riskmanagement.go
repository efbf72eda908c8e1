// Package riskmanagement implements the static risk-documentation scoring
// evaluator.
package riskmanagement

import (
	"context"
	"fmt"
	"strings"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/textmetrics"
)

const name = "risk_management"

type section struct {
	key      string
	weight   float64
	keywords []string
	elements []string
}

var sections = []section{
	{
		key:    "risk_assessment",
		weight: 0.4,
		keywords: []string{
			"risk", "hazard", "likelihood", "severity", "impact", "exposure",
		},
		elements: []string{
			"risk identification", "risk analysis", "risk evaluation", "risk criteria",
		},
	},
	{
		key:    "mitigation_measures",
		weight: 0.3,
		keywords: []string{
			"mitigation", "control", "safeguard", "remediation", "countermeasure",
		},
		elements: []string{
			"mitigation plan", "control measures", "residual risk", "contingency",
		},
	},
	{
		key:    "monitoring_system",
		weight: 0.3,
		keywords: []string{
			"monitoring", "audit", "review", "alert", "tracking",
		},
		elements: []string{
			"monitoring plan", "review cadence", "escalation process", "audit trail",
		},
	},
}

// Evaluator scores a contract's risk documentation against three required
// sections.
type Evaluator struct {
	evaluator.BaseAsync
	threshold float64
}

// New builds a risk-management Evaluator.
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
	return []string{"risk_management.score", "metrics.risk_management.score"}
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
		return nil, fmt.Errorf("risk_management: nil contract")
	}

	doc := riskDocumentation(c)
	if doc == "" {
		return evalresult.NewError(name, "no risk documentation present", nil), nil
	}

	sectionScores := make(map[string]any, len(sections))
	var overall float64
	for _, s := range sections {
		sectionText := sectionText(doc, s.key)
		keywordCoverage := textmetrics.KeywordCoverage(sectionText, s.keywords)
		elementCoverage := textmetrics.KeywordCoverage(sectionText, s.elements)
		score := 0.6*elementCoverage + 0.4*keywordCoverage
		overall += s.weight * score
		sectionScores[s.key] = map[string]any{
			"score":            score,
			"keyword_coverage": keywordCoverage,
			"element_coverage": elementCoverage,
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
			"sections": sectionScores,
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
		return fmt.Sprintf("risk documentation score %.3f meets threshold %.3f", overall, threshold)
	}
	return fmt.Sprintf("risk documentation score %.3f below threshold %.3f", overall, threshold)
}

// riskDocumentation returns the contract's context.risk_documentation as a
// flat string, or a reconstruction from interaction outputs when absent.
func riskDocumentation(c *contract.Contract) string {
	if raw, ok := c.Context["risk_documentation"]; ok {
		switch v := raw.(type) {
		case string:
			return v
		case map[string]any:
			var b strings.Builder
			for _, s := range sections {
				if text, ok := v[s.key].(string); ok {
					fmt.Fprintf(&b, "%s: %s\n", s.key, text)
				}
			}
			return b.String()
		}
	}

	var b strings.Builder
	for _, in := range c.Interactions {
		b.WriteString(in.OutputText)
		b.WriteString("\n")
	}
	return b.String()
}

// sectionText extracts the substring of doc following a "<key>:" marker, or
// the whole document when no section markers are present (reconstructed
// documentation has no markers, so every section scores against the same
// text).
func sectionText(doc, key string) string {
	marker := key + ":"
	idx := strings.Index(strings.ToLower(doc), marker)
	if idx < 0 {
		return doc
	}
	rest := doc[idx+len(marker):]
	if next := nextSectionIndex(rest); next >= 0 {
		return rest[:next]
	}
	return rest
}

func nextSectionIndex(text string) int {
	lower := strings.ToLower(text)
	best := -1
	for _, s := range sections {
		if idx := strings.Index(lower, s.key+":"); idx >= 0 {
			if best < 0 || idx < best {
				best = idx
			}
		}
	}
	return best
}
