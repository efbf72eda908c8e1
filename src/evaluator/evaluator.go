// Package evaluator defines the uniform, pluggable interface every
// compliance evaluator implements, plus its configuration and shared async
// fallback.
package evaluator

import (
	"context"
	"fmt"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
)

// Config is an evaluator's configuration. Known fields are typed; anything
// the caller sets that this struct does not model is preserved in Extras —
// the re-architecture of the source's attribute-style config maps called for
// by the Design Notes.
type Config struct {
	// Threshold is the score in [0,1] at or above which the evaluator's
	// aggregate is compliant, for evaluators that use the score-threshold
	// convention. Detector-style evaluators use it as the per-detector
	// threshold instead: a detector fires when its score is below it.
	Threshold float64
	// UseMockIfUnavailable permits an evaluator to fall back to a
	// conservative, diagnostic result when its external capability (an LLM
	// judge, a text-analysis library) is missing, instead of refusing to run.
	UseMockIfUnavailable bool
	// Model names the LLM judge model to request, when applicable.
	Model string
	// Extras holds any configuration key this struct doesn't model,
	// preserved verbatim so callers can pass evaluator-specific tuning
	// (e.g. fairness.counterfactual_weight) without a type per field.
	Extras map[string]any
}

// Merge returns a copy of cfg with any non-zero field from override applied
// on top, and override's Extras merged over cfg's Extras. Merge never
// mutates either input — configuration composition throughout this module
// uses immutable-copy semantics per §5.
func (cfg Config) Merge(override Config) Config {
	merged := cfg
	if override.Threshold != 0 {
		merged.Threshold = override.Threshold
	}
	if override.UseMockIfUnavailable {
		merged.UseMockIfUnavailable = override.UseMockIfUnavailable
	}
	if override.Model != "" {
		merged.Model = override.Model
	}
	merged.Extras = map[string]any{}
	for k, v := range cfg.Extras {
		merged.Extras[k] = v
	}
	for k, v := range override.Extras {
		merged.Extras[k] = v
	}
	return merged
}

// Float64 reads a float64 extra, falling back when absent or of the wrong type.
func (cfg Config) Float64(key string, fallback float64) float64 {
	if v, ok := cfg.Extras[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return fallback
}

// Bool reads a bool extra, falling back when absent or of the wrong type.
func (cfg Config) Bool(key string, fallback bool) bool {
	if v, ok := cfg.Extras[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// String reads a string extra, falling back when absent or of the wrong type.
func (cfg Config) String(key string, fallback string) string {
	if v, ok := cfg.Extras[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// Evaluator is the uniform contract every compliance evaluator implements.
type Evaluator interface {
	// Name is the evaluator's identifier, used as its registry/orchestrator
	// key and as EvaluationResult.EvaluatorName.
	Name() string
	// SupportedMetrics returns the metric identifiers this evaluator can
	// produce, used by the registry to route requirements to evaluators.
	SupportedMetrics() []string
	// DefaultConfig returns the evaluator's starting configuration.
	DefaultConfig() Config
	// Initialize validates cfg and prepares dependencies. The built-in
	// evaluators return no error when a required external capability is
	// absent and cfg.UseMockIfUnavailable is false; their Evaluate then
	// returns a dependency-unavailable result instead.
	Initialize(cfg Config) error
	// Evaluate synchronously evaluates c and never returns a non-nil error
	// for well-formed input — failures are reported inside the result per §4.1.
	Evaluate(ctx context.Context, c *contract.Contract) (*evalresult.EvaluationResult, error)
	// EvaluateAsync is the asynchronous entry point; it must never block the
	// shared scheduler beyond a bounded internal wait.
	EvaluateAsync(ctx context.Context, c *contract.Contract) (*evalresult.EvaluationResult, error)
	// ProjectReport renders one or more results in the requested format.
	ProjectReport(results map[string]*evalresult.EvaluationResult, format evalresult.Format) (*evalresult.Report, error)
}

// BaseAsync is embedded by evaluators that have no native asynchronous path.
// It supplies a default EvaluateAsync that runs Evaluate on a goroutine,
// respecting ctx cancellation — the "mixed sync/async" re-architecture named
// in the Design Notes.
type BaseAsync struct{}

// RunAsync runs evaluate on a goroutine and returns its result, or a timeout
// result if ctx is done first. evaluatorName labels the timeout result.
func (BaseAsync) RunAsync(ctx context.Context, evaluatorName string, evaluate func() (*evalresult.EvaluationResult, error)) (*evalresult.EvaluationResult, error) {
	type outcome struct {
		result *evalresult.EvaluationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := evaluate()
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return evalresult.NewError(evaluatorName, fmt.Sprintf("evaluation timed out: %v", ctx.Err()), ctx.Err()), nil
	}
}
