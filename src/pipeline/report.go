package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/policy/engine"
	"github.com/aicertify/aicertify-go/src/report"
)

// combinedPayload is the JSON shape of a full pipeline report: phase-1
// evaluator results plus phase-2 normalized policy results and the overall
// combined verdict.
type combinedPayload struct {
	OverallCompliant bool                                     `json:"overall_compliant"`
	Evaluators       map[string]*evalresult.EvaluationResult `json:"evaluators"`
	Policies         map[string]*engine.PolicyResult          `json:"policies"`
}

// projectCombinedReport renders phase1/phase2 and the combined verdict as a
// Report in format, per §4.8: JSON preserves values verbatim, Markdown adds a
// "Policy Results" section after the evaluator verdict table. PDF and HTML
// delegate to src/report, which derives its layout from the same data.
func projectCombinedReport(applicationName string, phase1 map[string]*evalresult.EvaluationResult, phase2 map[string]*engine.PolicyResult, overall bool, format evalresult.Format) (*evalresult.Report, error) {
	switch format {
	case evalresult.FormatJSON:
		payload := combinedPayload{OverallCompliant: overall, Evaluators: phase1, Policies: phase2}
		content, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("pipeline: marshal json report: %w", err)
		}
		return &evalresult.Report{Content: content, Format: evalresult.FormatJSON, GeneratedAt: time.Now().UTC()}, nil
	case evalresult.FormatMarkdown:
		return &evalresult.Report{Content: []byte(renderCombinedMarkdown(phase1, phase2, overall)), Format: evalresult.FormatMarkdown, GeneratedAt: time.Now().UTC()}, nil
	case evalresult.FormatPDF, evalresult.FormatHTML:
		r, err := report.Render(applicationName, phase1, phase2, overall, format, report.Options{})
		if err != nil {
			return nil, err
		}
		r.GeneratedAt = time.Now().UTC()
		return r, nil
	default:
		return nil, fmt.Errorf("pipeline: unsupported report format %q", format)
	}
}

// renderCombinedMarkdown is the §4.8 Markdown layout: header, overall
// PASS/FAIL line, the evaluator verdict sections from evalresult, then a
// "Policy Results" section per normalized policy.
func renderCombinedMarkdown(phase1 map[string]*evalresult.EvaluationResult, phase2 map[string]*engine.PolicyResult, overall bool) string {
	var buf bytes.Buffer

	buf.WriteString("# AI Compliance Evaluation Report\n\n")
	verdict := "FAIL"
	if overall {
		verdict = "PASS"
	}
	fmt.Fprintf(&buf, "**Overall: %s**\n\n", verdict)

	buf.WriteString(evalresult.RenderMarkdown(phase1))

	buf.WriteString("## Policy Results\n\n")
	if len(phase2) == 0 {
		buf.WriteString("_No policies evaluated._\n")
		return buf.String()
	}

	names := make([]string, 0, len(phase2))
	for name := range phase2 {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pr := phase2[name]
		policyVerdict := "FAIL"
		if pr.OverallResult {
			policyVerdict = "PASS"
		}
		fmt.Fprintf(&buf, "### %s — %s\n\n", name, policyVerdict)
		fmt.Fprintf(&buf, "- **Status**: %s\n", pr.Status)
		if len(pr.Details) > 0 {
			fmt.Fprintf(&buf, "- **Details**: %v\n", pr.Details)
		}
		if len(pr.Recommendations) > 0 {
			buf.WriteString("- **Recommendations**:\n")
			for _, r := range pr.Recommendations {
				fmt.Fprintf(&buf, "  - %s\n", r)
			}
		}
		buf.WriteString("\n")
	}

	return buf.String()
}
