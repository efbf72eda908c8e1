package report

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/policy/engine"
)

func sampleResults() (map[string]*evalresult.EvaluationResult, map[string]*engine.PolicyResult) {
	phase1 := map[string]*evalresult.EvaluationResult{
		"fairness": {EvaluatorName: "fairness", Compliant: true, Score: 0.9, Reason: "ok"},
	}
	phase2 := map[string]*engine.PolicyResult{
		"general/v1/basic": {PolicyName: "general/v1/basic", OverallResult: true, Status: "Active"},
	}
	return phase1, phase2
}

func TestRender_PDF_ProducesNonEmptyContent(t *testing.T) {
	phase1, phase2 := sampleResults()
	r, err := Render("acme", phase1, phase2, true, evalresult.FormatPDF, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Content)
	assert.True(t, bytes.HasPrefix(r.Content, []byte("%PDF")))
}

func TestRender_HTML_ContainsOverallVerdict(t *testing.T) {
	phase1, phase2 := sampleResults()
	r, err := Render("acme", phase1, phase2, true, evalresult.FormatHTML, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(r.Content), "PASS")
	assert.Contains(t, string(r.Content), "fairness")
}

func TestRender_GzipOption_CompressesContent(t *testing.T) {
	phase1, phase2 := sampleResults()
	r, err := Render("acme", phase1, phase2, true, evalresult.FormatHTML, Options{Gzip: true})
	require.NoError(t, err)

	gr, err := gzip.NewReader(bytes.NewReader(r.Content))
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Contains(t, string(decompressed), "fairness")
}

func TestRender_UnsupportedFormat_Errors(t *testing.T) {
	phase1, phase2 := sampleResults()
	_, err := Render("acme", phase1, phase2, true, evalresult.FormatJSON, Options{})
	require.Error(t, err)
}
