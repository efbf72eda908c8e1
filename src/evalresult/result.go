// Package evalresult defines the uniform shape every evaluator returns and
// the aggregated report produced from a set of results.
package evalresult

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Format is a report serialization format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
)

// EvaluationResult is a single evaluator's verdict for a contract.
type EvaluationResult struct {
	EvaluatorName string         `json:"evaluator_name"`
	Compliant     bool           `json:"compliant"`
	Score         float64        `json:"score"`
	Threshold     *float64       `json:"threshold,omitempty"`
	Reason        string         `json:"reason"`
	Details       map[string]any `json:"details"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewError builds the standard failed-evaluation result every evaluator (and
// the orchestrator, on its behalf) returns instead of propagating an error
// across the evaluator boundary, per §4.1's error-handling contract.
func NewError(evaluatorName, reason string, err error) *EvaluationResult {
	details := map[string]any{}
	if err != nil {
		details["error"] = err.Error()
	}
	return &EvaluationResult{
		EvaluatorName: evaluatorName,
		Compliant:     false,
		Score:         0,
		Reason:        reason,
		Details:       details,
		Timestamp:     time.Now().UTC(),
	}
}

// NewDependencyUnavailable builds the standard strict-mode result for a
// missing external capability, per §4.1 and §7.
func NewDependencyUnavailable(evaluatorName, capability string) *EvaluationResult {
	return &EvaluationResult{
		EvaluatorName: evaluatorName,
		Compliant:     false,
		Score:         0,
		Reason:        "required capability unavailable: " + capability,
		Details: map[string]any{
			"dependency_unavailable": true,
			"capability":             capability,
		},
		Timestamp: time.Now().UTC(),
	}
}

// Threshold wraps a float64 as the optional pointer field EvaluationResult
// expects, saving callers the address-of boilerplate.
func Threshold(t float64) *float64 {
	return &t
}

// Project renders results (keyed by evaluator name) as a Report in format,
// shared by every evaluator's and the orchestrator's ProjectReport so JSON
// and Markdown output stay byte-for-byte consistent across the module.
// Callers needing PDF or HTML delegate to src/report, which builds its
// content directly from the result maps, not from this Markdown text.
func Project(results map[string]*EvaluationResult, format Format) (*Report, error) {
	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("evalresult: marshal json report: %w", err)
		}
		return &Report{Content: content, Format: FormatJSON, GeneratedAt: time.Now().UTC()}, nil
	case FormatMarkdown:
		return &Report{Content: []byte(RenderMarkdown(results)), Format: FormatMarkdown, GeneratedAt: time.Now().UTC()}, nil
	default:
		return nil, fmt.Errorf("evalresult: unsupported report format %q for direct projection", format)
	}
}

// RenderMarkdown renders results as a Markdown document, evaluators sorted
// by name for deterministic output.
func RenderMarkdown(results map[string]*EvaluationResult) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("# Compliance Evaluation Report\n\n")
	buf.WriteString("| Evaluator | Result | Score | Threshold |\n|---|---|---|---|\n")
	for _, name := range names {
		r := results[name]
		verdict := "FAIL"
		if r.Compliant {
			verdict = "PASS"
		}
		threshold := "-"
		if r.Threshold != nil {
			threshold = fmt.Sprintf("%.3f", *r.Threshold)
		}
		fmt.Fprintf(&buf, "| %s | %s | %.3f | %s |\n", name, verdict, r.Score, threshold)
	}
	buf.WriteString("\n")
	for _, name := range names {
		r := results[name]
		verdict := "FAIL"
		if r.Compliant {
			verdict = "PASS"
		}
		fmt.Fprintf(&buf, "## %s — %s\n\n", name, verdict)
		fmt.Fprintf(&buf, "- **Score**: %.3f\n", r.Score)
		if r.Threshold != nil {
			fmt.Fprintf(&buf, "- **Threshold**: %.3f\n", *r.Threshold)
		}
		fmt.Fprintf(&buf, "- **Reason**: %s\n\n", r.Reason)
	}
	return buf.String()
}

// Report is a serialized evaluation report in one of the formats above.
type Report struct {
	Content     []byte         `json:"content"`
	Format      Format         `json:"format"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
