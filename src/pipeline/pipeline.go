// Package pipeline wires the contract, policy loader, evaluator registry,
// orchestrator, and policy engine driver into the single combined-compliance
// entry point described by the component design: validate, resolve policy,
// discover evaluators, run phase-1, run phase-2, combine, report.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aicertify/aicertify-go/src/apperrors"
	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/orchestrator"
	"github.com/aicertify/aicertify-go/src/policy/engine"
	"github.com/aicertify/aicertify-go/src/policy/loader"
	"github.com/aicertify/aicertify-go/src/registry"
)

// Registry is the subset of *registry.Registry the pipeline depends on,
// narrowed for testability.
type Registry interface {
	Discover(requiredMetrics []string) []string
	Build(name string, cfg evaluator.Config) (evaluator.Evaluator, error)
}

// Engine is the subset of *engine.Driver the pipeline depends on.
type Engine interface {
	EvaluatePolicyCategory(ctx context.Context, queryPath string, input map[string]any) *engine.PolicyResult
}

// Pipeline is the combined-compliance evaluation entry point.
type Pipeline struct {
	Loader   *loader.Index
	Registry Registry
	Engine   Engine

	// Timeout bounds the full evaluation, per §5's 120s default.
	Timeout time.Duration

	// EvaluatorConfig is the effective per-evaluator configuration applied
	// before any domain-specific override the caller layers on top.
	EvaluatorConfig evaluator.Config
}

// New builds a Pipeline with process defaults: the default registry and the
// 120-second pipeline timeout.
func New(policyIndex *loader.Index, eng Engine) *Pipeline {
	return &Pipeline{
		Loader:   policyIndex,
		Registry: registry.Default(),
		Engine:   eng,
		Timeout:  orchestrator.DefaultTimeout,
	}
}

// Result is the combined output of one Evaluate call.
type Result struct {
	Phase1           map[string]*evalresult.EvaluationResult
	Phase2           map[string]*engine.PolicyResult
	OverallCompliant bool
	ResolvedFolder   string
	Report           *evalresult.Report
	ReportPath       string
}

// Evaluate runs the ten-step combined compliance flow against c, resolving
// policyFolder to a concrete matched folder, producing a report in
// reportFormat, and — when outputDir is non-empty — writing it to disk.
func (p *Pipeline) Evaluate(ctx context.Context, c *contract.Contract, policyFolder string, reportFormat evalresult.Format, outputDir string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.effectiveTimeout())
	defer cancel()

	// Step 1: validate contract.
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Step 2: resolve policy_folder to a concrete folder.
	folder, err := p.Loader.ResolveFolder(policyFolder)
	if err != nil {
		return nil, err
	}

	// Step 3: required metrics for the matched folder.
	requiredMetrics := p.Loader.GetRequiredMetricsForFolder(folder)

	// Step 4: discover evaluator classes covering those metrics.
	evaluatorNames := p.Registry.Discover(requiredMetrics)

	// Step 5: construct the orchestrator with those evaluators.
	evaluators := make([]evaluator.Evaluator, 0, len(evaluatorNames))
	for _, name := range evaluatorNames {
		e, err := p.Registry.Build(name, p.EvaluatorConfig)
		if err != nil {
			continue // a single unbuildable evaluator doesn't abort the batch.
		}
		evaluators = append(evaluators, e)
	}
	ce := orchestrator.New(evaluators)

	// Step 6: run phase-1.
	phase1 := ce.EvaluateAsync(ctx, c)

	// Step 7: build policy input.
	serializedContract, err := contractAsMap(c)
	if err != nil {
		return nil, fmt.Errorf("pipeline: serialize contract: %w", err)
	}
	policyInput := map[string]any{
		"contract":   serializedContract,
		"evaluation": resultsAsMap(phase1),
	}

	// Step 8: run phase-2.
	var phase2 map[string]*engine.PolicyResult
	if p.Engine == nil {
		phase2 = map[string]*engine.PolicyResult{
			folder: {PolicyName: folder, OverallResult: false, Status: "Error", Details: map[string]any{"message": "engine unavailable"}},
		}
	} else {
		queryPath := p.Loader.GetPolicyPackagePath(folder)
		phase2 = map[string]*engine.PolicyResult{
			folder: p.Engine.EvaluatePolicyCategory(ctx, queryPath, policyInput),
		}
	}

	// Step 9: overall compliance.
	overall := orchestrator.IsCompliant(phase1)
	for _, pr := range phase2 {
		if !pr.OverallResult {
			overall = false
		}
	}

	// Step 10: emit report.
	report, err := projectCombinedReport(c.ApplicationName, phase1, phase2, overall, reportFormat)
	if err != nil {
		return nil, &apperrors.ReportGenerationError{Format: string(reportFormat), Cause: err}
	}

	result := &Result{
		Phase1:           phase1,
		Phase2:           phase2,
		OverallCompliant: overall,
		ResolvedFolder:   folder,
		Report:           report,
	}

	if outputDir != "" {
		path, err := writeReport(outputDir, c.ApplicationName, report)
		if err != nil {
			return result, &apperrors.ReportGenerationError{Format: string(reportFormat), Cause: err}
		}
		result.ReportPath = path
	}

	return result, nil
}

func (p *Pipeline) effectiveTimeout() time.Duration {
	if p.Timeout == 0 {
		return orchestrator.DefaultTimeout
	}
	return p.Timeout
}

func resultsAsMap(results map[string]*evalresult.EvaluationResult) map[string]any {
	out := make(map[string]any, len(results))
	for name, r := range results {
		out[name] = r
	}
	return out
}

func contractAsMap(c *contract.Contract) (map[string]any, error) {
	data, err := c.ToJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeReport(outputDir, applicationName string, report *evalresult.Report) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("%s-%s.%s", sanitizeFilename(applicationName), report.GeneratedAt.Format("2006-01-02T15-04-05Z"), extensionFor(report.Format))
	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, report.Content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func extensionFor(format evalresult.Format) string {
	switch format {
	case evalresult.FormatJSON:
		return "json"
	case evalresult.FormatMarkdown:
		return "md"
	case evalresult.FormatPDF:
		return "pdf"
	case evalresult.FormatHTML:
		return "html"
	default:
		return "txt"
	}
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
