package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/policy/engine"
)

const defaultHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; }
    h1 { margin-bottom: 0; }
    .verdict-pass { color: #1a7f37; font-weight: bold; }
    .verdict-fail { color: #cf222e; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { border: 1px solid #d0d7de; padding: 0.5rem; text-align: left; }
    th { background: #f6f8fa; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>Generated: {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}</p>
  <p>Overall: <span class="{{if .Overall}}verdict-pass{{else}}verdict-fail{{end}}">{{if .Overall}}PASS{{else}}FAIL{{end}}</span></p>

  <h2>Evaluator Results</h2>
  <table>
    <tr><th>Evaluator</th><th>Verdict</th><th>Score</th><th>Reason</th></tr>
    {{range .Evaluators}}
    <tr>
      <td>{{.Name}}</td>
      <td class="{{if .Compliant}}verdict-pass{{else}}verdict-fail{{end}}">{{if .Compliant}}PASS{{else}}FAIL{{end}}</td>
      <td>{{printf "%.3f" .Score}}</td>
      <td>{{.Reason}}</td>
    </tr>
    {{end}}
  </table>

  <h2>Policy Results</h2>
  <table>
    <tr><th>Policy</th><th>Verdict</th><th>Status</th></tr>
    {{range .Policies}}
    <tr>
      <td>{{.Name}}</td>
      <td class="{{if .OverallResult}}verdict-pass{{else}}verdict-fail{{end}}">{{if .OverallResult}}PASS{{else}}FAIL{{end}}</td>
      <td>{{.Status}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`

// HTMLRenderer renders a combined compliance report as a single static HTML
// document in a report-with-table layout.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the default report template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("report").Parse(defaultHTMLTemplate)
	if err != nil {
		return nil, fmt.Errorf("report: parse html template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

type namedEvaluatorResult struct {
	Name string
	*evalresult.EvaluationResult
}

type namedPolicyResult struct {
	Name string
	*engine.PolicyResult
}

type htmlReportData struct {
	Title       string
	GeneratedAt time.Time
	Overall     bool
	Evaluators  []namedEvaluatorResult
	Policies    []namedPolicyResult
}

// Render executes the HTML template against phase1/phase2 results.
func (r *HTMLRenderer) Render(phase1 map[string]*evalresult.EvaluationResult, phase2 map[string]*engine.PolicyResult, overall bool) ([]byte, error) {
	data := htmlReportData{
		Title:       "AI Compliance Evaluation Report",
		GeneratedAt: time.Now().UTC(),
		Overall:     overall,
	}

	evalNames := make([]string, 0, len(phase1))
	for name := range phase1 {
		evalNames = append(evalNames, name)
	}
	sort.Strings(evalNames)
	for _, name := range evalNames {
		data.Evaluators = append(data.Evaluators, namedEvaluatorResult{Name: name, EvaluationResult: phase1[name]})
	}

	policyNames := make([]string, 0, len(phase2))
	for name := range phase2 {
		policyNames = append(policyNames, name)
	}
	sort.Strings(policyNames)
	for _, name := range policyNames {
		data.Policies = append(data.Policies, namedPolicyResult{Name: name, PolicyResult: phase2[name]})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report: execute html template: %w", err)
	}
	return buf.Bytes(), nil
}
