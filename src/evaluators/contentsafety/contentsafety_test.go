package contentsafety

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evaluator"
)

func newContract(t *testing.T, outputs ...string) *contract.Contract {
	t.Helper()
	interactions := make([]contract.Interaction, 0, len(outputs))
	for _, o := range outputs {
		interactions = append(interactions, contract.Interaction{
			InteractionID: uuid.New(),
			Timestamp:     time.Now(),
			InputText:     "question",
			OutputText:    o,
		})
	}
	c, err := contract.New("chatbot", contract.ModelInfo{ModelName: "m"}, interactions)
	require.NoError(t, err)
	return c
}

func TestEvaluate_CleanInteractions_Compliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c := newContract(t, "Thank you for your question, here is the answer.")
	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Compliant)
}

func TestEvaluate_ToxicInteraction_NotCompliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c := newContract(t, "You are stupid and worthless, I hate you.")
	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Compliant)
}

func TestEvaluate_PerInteractionPassUsesToxicityThreshold(t *testing.T) {
	e, err := New(evaluator.Config{Extras: map[string]any{"toxicity_threshold": 1.01}})
	require.NoError(t, err)

	c := newContract(t, "Thank you for your question, here is the answer.")
	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)

	results := res.Details["interaction_results"].([]map[string]any)
	require.Len(t, results, 1)
	assert.False(t, results[0]["passed"].(bool))
}

func TestEvaluate_StrictModeNoJudge_ReturnsDependencyUnavailable(t *testing.T) {
	e, err := New(evaluator.Config{UseMockIfUnavailable: false})
	require.NoError(t, err)

	c := newContract(t, "anything")
	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Compliant)
	assert.Equal(t, true, res.Details["dependency_unavailable"])
}

func TestEvaluate_NoInteractions_ErrorResult(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), &contract.Contract{ApplicationName: "x", ModelInfo: contract.ModelInfo{ModelName: "m"}})
	require.NoError(t, err)
	assert.False(t, res.Compliant)
}
