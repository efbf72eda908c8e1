package accuracy

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

func TestEvaluate_NoContext_LowConfidenceButRuns(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c, err := contract.New("assistant", contract.ModelInfo{ModelName: "m"}, []contract.Interaction{
		{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "what is the capital of france", OutputText: "paris"},
	})
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, true, res.Details["low_confidence"])
}

func TestEvaluate_ConsistentWithContext_Compliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c, err := contract.New("assistant", contract.ModelInfo{ModelName: "m"}, []contract.Interaction{
		{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "q", OutputText: "the capital of france is paris"},
	}, contract.WithContext(map[string]any{
		"context": []string{"Paris is the capital of France and a major European city."},
	}))
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Compliant)
}

func TestEvaluate_InconsistentWithContext_NotCompliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c, err := contract.New("assistant", contract.ModelInfo{ModelName: "m"}, []contract.Interaction{
		{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "q", OutputText: "the moon is made of cheese and dinosaurs still roam earth"},
	}, contract.WithContext(map[string]any{
		"context": []string{"The moon is a rocky, airless satellite of Earth."},
	}))
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Compliant)
}

func TestEvaluate_StrictModeNoJudge_DependencyUnavailable(t *testing.T) {
	e, err := New(evaluator.Config{UseMockIfUnavailable: false})
	require.NoError(t, err)

	c, err := contract.New("assistant", contract.ModelInfo{ModelName: "m"}, []contract.Interaction{
		{InteractionID: uuid.New(), Timestamp: time.Now(), InputText: "q", OutputText: "a"},
	})
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, true, res.Details["dependency_unavailable"])
}
