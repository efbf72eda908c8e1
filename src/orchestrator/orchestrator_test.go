package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/evaluators/fairness"
	"github.com/aicertify/aicertify-go/src/evaluators/riskmanagement"
)

func sampleContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.New("app", contract.ModelInfo{ModelName: "m"}, []contract.Interaction{
		{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "q", OutputText: "a plain and neutral response"},
	})
	require.NoError(t, err)
	return c
}

func TestEvaluateAsync_RunsAllEvaluators(t *testing.T) {
	fairnessEval, err := fairness.New(evaluator.Config{})
	require.NoError(t, err)
	riskEval, err := riskmanagement.New(evaluator.Config{})
	require.NoError(t, err)

	ce := New([]evaluator.Evaluator{fairnessEval, riskEval})
	aggregate := ce.EvaluateAsync(context.Background(), sampleContract(t))

	assert.Len(t, aggregate, 2)
	assert.Contains(t, aggregate, "fairness")
	assert.Contains(t, aggregate, "risk_management")
}

func TestIsCompliant_EmptyAggregate_False(t *testing.T) {
	assert.False(t, IsCompliant(nil))
}

func TestIsCompliant_MatchesEveryResult(t *testing.T) {
	fairnessEval, err := fairness.New(evaluator.Config{})
	require.NoError(t, err)

	ce := New([]evaluator.Evaluator{fairnessEval})
	aggregate := ce.EvaluateAsync(context.Background(), sampleContract(t))

	want := true
	for _, r := range aggregate {
		if !r.Compliant {
			want = false
		}
	}
	assert.Equal(t, want, IsCompliant(aggregate))
}

func TestProjectReport_JSON(t *testing.T) {
	fairnessEval, err := fairness.New(evaluator.Config{})
	require.NoError(t, err)

	ce := New([]evaluator.Evaluator{fairnessEval})
	aggregate := ce.EvaluateAsync(context.Background(), sampleContract(t))

	report, err := ce.ProjectReport(aggregate, "json")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Content)
}
