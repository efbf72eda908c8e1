// Package orchestrator fans a contract out across a selected set of
// evaluators concurrently and aggregates their results.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/evaluator"
)

// DefaultTimeout bounds a full orchestrator run when the caller's context
// carries no deadline, per §5's 120s pipeline-level default.
const DefaultTimeout = 120 * time.Second

// ComplianceEvaluator runs a fixed set of evaluators concurrently against a
// contract and aggregates their EvaluationResults.
type ComplianceEvaluator struct {
	evaluators map[string]evaluator.Evaluator
}

// New constructs a ComplianceEvaluator from the given evaluators, keyed by
// their own Name().
func New(evaluators []evaluator.Evaluator) *ComplianceEvaluator {
	indexed := make(map[string]evaluator.Evaluator, len(evaluators))
	for _, e := range evaluators {
		indexed[e.Name()] = e
	}
	return &ComplianceEvaluator{evaluators: indexed}
}

// EvaluateAsync runs every evaluator concurrently, isolating each from the
// others' failures, and returns the aggregate keyed by evaluator name. If ctx
// carries no deadline, a DefaultTimeout is applied so a single run can never
// hang the caller indefinitely.
func (ce *ComplianceEvaluator) EvaluateAsync(ctx context.Context, c *contract.Contract) map[string]*evalresult.EvaluationResult {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	type named struct {
		name   string
		result *evalresult.EvaluationResult
	}
	resultsCh := make(chan named, len(ce.evaluators))

	var wg sync.WaitGroup
	for name, e := range ce.evaluators {
		wg.Add(1)
		go func(name string, e evaluator.Evaluator) {
			defer wg.Done()
			result, err := e.EvaluateAsync(ctx, c)
			if err != nil {
				result = evalresult.NewError(name, "evaluator returned an unexpected error", err)
			}
			if result == nil {
				result = evalresult.NewError(name, "evaluator returned no result", nil)
			}
			resultsCh <- named{name, result}
		}(name, e)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	aggregate := make(map[string]*evalresult.EvaluationResult, len(ce.evaluators))
	for n := range resultsCh {
		aggregate[n.name] = n.result
	}
	return aggregate
}

// IsCompliant reports whether every result in aggregate is compliant. An
// empty aggregate (no evaluators ran) is not considered compliant.
func IsCompliant(aggregate map[string]*evalresult.EvaluationResult) bool {
	if len(aggregate) == 0 {
		return false
	}
	for _, r := range aggregate {
		if !r.Compliant {
			return false
		}
	}
	return true
}

// ProjectReport renders aggregate as a Report in format, delegating to the
// shared evalresult projection so every evaluator's JSON/Markdown output
// stays consistent with its own ProjectReport.
func (ce *ComplianceEvaluator) ProjectReport(aggregate map[string]*evalresult.EvaluationResult, format evalresult.Format) (*evalresult.Report, error) {
	return evalresult.Project(aggregate, format)
}

// Names returns the names of the evaluators this instance was built with.
func (ce *ComplianceEvaluator) Names() []string {
	names := make([]string, 0, len(ce.evaluators))
	for name := range ce.evaluators {
		names = append(names, name)
	}
	return names
}
