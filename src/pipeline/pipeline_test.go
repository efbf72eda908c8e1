package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/policy/engine"
	"github.com/aicertify/aicertify-go/src/policy/loader"
)

func writePolicyFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sampleContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.New(
		"loan-assistant",
		contract.ModelInfo{ModelName: "gpt-test"},
		[]contract.Interaction{
			{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "hi", OutputText: "hello there"},
		},
	)
	require.NoError(t, err)
	return c
}

type stubRegistry struct{}

func (stubRegistry) Discover(requiredMetrics []string) []string { return nil }
func (stubRegistry) Build(name string, cfg evaluator.Config) (evaluator.Evaluator, error) {
	return nil, nil
}

type stubEngine struct {
	result *engine.PolicyResult
}

func (s stubEngine) EvaluatePolicyCategory(ctx context.Context, queryPath string, input map[string]any) *engine.PolicyResult {
	return s.result
}

func TestEvaluate_ResolvesFolderAndCombinesVerdict(t *testing.T) {
	root := t.TempDir()
	writePolicyFile(t, root, "general/v1/basic/policy.rego", "package general.v1.basic\n\ndefault allow = true\n")
	idx, err := loader.Load(root)
	require.NoError(t, err)

	p := &Pipeline{
		Loader:   idx,
		Registry: stubRegistry{},
		Engine:   stubEngine{result: &engine.PolicyResult{PolicyName: "general/v1/basic", OverallResult: true, Status: "Active"}},
		Timeout:  5 * time.Second,
	}

	result, err := p.Evaluate(context.Background(), sampleContract(t), "basic", evalresult.FormatJSON, "")
	require.NoError(t, err)
	assert.Equal(t, "general/v1/basic", result.ResolvedFolder)
	// stubRegistry discovers no evaluators, and an empty phase-1 aggregate is
	// never compliant, so the passing policy alone cannot make the run pass.
	assert.False(t, result.OverallCompliant)
	assert.Equal(t, evalresult.FormatJSON, result.Report.Format)
}

func TestEvaluate_NoMatchingFolder_ReturnsError(t *testing.T) {
	root := t.TempDir()
	writePolicyFile(t, root, "general/v1/basic/policy.rego", "package general.v1.basic\n")
	idx, err := loader.Load(root)
	require.NoError(t, err)

	p := &Pipeline{Loader: idx, Registry: stubRegistry{}, Engine: nil}
	_, err = p.Evaluate(context.Background(), sampleContract(t), "does-not-exist", evalresult.FormatJSON, "")
	require.Error(t, err)
}

func TestEvaluate_EngineUnavailable_OverallNotCompliant(t *testing.T) {
	root := t.TempDir()
	writePolicyFile(t, root, "general/v1/basic/policy.rego", "package general.v1.basic\n")
	idx, err := loader.Load(root)
	require.NoError(t, err)

	p := &Pipeline{Loader: idx, Registry: stubRegistry{}, Engine: nil, Timeout: 5 * time.Second}
	result, err := p.Evaluate(context.Background(), sampleContract(t), "basic", evalresult.FormatMarkdown, "")
	require.NoError(t, err)
	assert.False(t, result.OverallCompliant)
	assert.Contains(t, string(result.Report.Content), "Policy Results")
}

func TestEvaluate_WritesReportToOutputDir(t *testing.T) {
	root := t.TempDir()
	writePolicyFile(t, root, "general/v1/basic/policy.rego", "package general.v1.basic\n")
	idx, err := loader.Load(root)
	require.NoError(t, err)

	outputDir := filepath.Join(t.TempDir(), "reports")
	p := &Pipeline{
		Loader:   idx,
		Registry: stubRegistry{},
		Engine:   stubEngine{result: &engine.PolicyResult{PolicyName: "general/v1/basic", OverallResult: true, Status: "Active"}},
		Timeout:  5 * time.Second,
	}

	result, err := p.Evaluate(context.Background(), sampleContract(t), "basic", evalresult.FormatJSON, outputDir)
	require.NoError(t, err)
	require.NotEmpty(t, result.ReportPath)

	data, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
