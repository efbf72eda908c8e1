package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/policy/engine"
)

// PDFRenderer renders a combined compliance report as PDF, in a
// cover-page-plus-results-table layout.
type PDFRenderer struct{}

// Render builds a three-page PDF: a cover page with the overall verdict, an
// evaluator results table, and a policy results table.
func (PDFRenderer) Render(applicationName string, phase1 map[string]*evalresult.EvaluationResult, phase2 map[string]*engine.PolicyResult, overall bool) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("AI Compliance Evaluation Report", true)
	pdf.SetAuthor("aicertify", true)
	pdf.SetCreator("aicertify", true)
	pdf.SetFont("Arial", "", 10)

	pdf.AddPage()
	coverPage(pdf, applicationName, overall)

	pdf.AddPage()
	evaluatorTable(pdf, phase1)

	pdf.AddPage()
	policyTable(pdf, phase2)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func coverPage(pdf *gofpdf.Fpdf, applicationName string, overall bool) {
	pdf.SetFont("Arial", "B", 24)
	pdf.Cell(0, 10, "AI Compliance Evaluation Report")
	pdf.Ln(20)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Application: %s", applicationName))
	pdf.Ln(10)
	pdf.Cell(0, 10, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(20)

	verdict := "FAIL"
	if overall {
		verdict = "PASS"
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, fmt.Sprintf("Overall: %s", verdict))
}

func evaluatorTable(pdf *gofpdf.Fpdf, results map[string]*evalresult.EvaluationResult) {
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Evaluator Results")
	pdf.Ln(15)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	colWidths := []float64{60, 25, 25, 80}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.Cell(colWidths[0], 8, "Evaluator")
	pdf.Cell(colWidths[1], 8, "Verdict")
	pdf.Cell(colWidths[2], 8, "Score")
	pdf.Cell(colWidths[3], 8, "Reason")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, name := range names {
		r := results[name]
		verdict := "FAIL"
		if r.Compliant {
			pdf.SetFillColor(200, 255, 200)
			verdict = "PASS"
		} else {
			pdf.SetFillColor(255, 200, 200)
		}
		pdf.Cell(colWidths[0], 8, truncate(name, 30))
		pdf.CellFormat(colWidths[1], 8, verdict, "", 0, "L", true, 0, "")
		pdf.Cell(colWidths[2], 8, fmt.Sprintf("%.3f", r.Score))
		pdf.Cell(colWidths[3], 8, truncate(r.Reason, 45))
		pdf.Ln(-1)
	}
}

func policyTable(pdf *gofpdf.Fpdf, results map[string]*engine.PolicyResult) {
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Policy Results")
	pdf.Ln(15)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	colWidths := []float64{90, 25, 30}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.Cell(colWidths[0], 8, "Policy")
	pdf.Cell(colWidths[1], 8, "Verdict")
	pdf.Cell(colWidths[2], 8, "Status")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, name := range names {
		pr := results[name]
		verdict := "FAIL"
		if pr.OverallResult {
			pdf.SetFillColor(200, 255, 200)
			verdict = "PASS"
		} else {
			pdf.SetFillColor(255, 200, 200)
		}
		pdf.Cell(colWidths[0], 8, truncate(name, 45))
		pdf.CellFormat(colWidths[1], 8, verdict, "", 0, "L", true, 0, "")
		pdf.Cell(colWidths[2], 8, pr.Status)
		pdf.Ln(-1)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
