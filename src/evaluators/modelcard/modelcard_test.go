package modelcard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evaluator"
)

func TestEvaluate_MissingModelCard_ErrorResult(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c := &contract.Contract{ApplicationName: "x", ModelInfo: contract.ModelInfo{ModelName: "m"}}
	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Compliant)
}

func comprehensiveText() string {
	return "This section provides a thorough and comprehensive description spanning multiple sentences with substantial detail about the subject matter at hand, suitable for regulatory review."
}

func TestEvaluate_ComprehensiveCard_Compliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	card := map[string]any{
		"model_details":           map[string]any{"overview": comprehensiveText(), "version": comprehensiveText(), "owners": comprehensiveText(), "license": comprehensiveText()},
		"intended_use":            map[string]any{"primary_uses": comprehensiveText(), "primary_users": comprehensiveText(), "out_of_scope_uses": comprehensiveText()},
		"factors":                 map[string]any{"relevant_factors": comprehensiveText(), "evaluation_factors": comprehensiveText()},
		"metrics":                 map[string]any{"performance_measures": comprehensiveText(), "decision_thresholds": comprehensiveText(), "variation_approaches": comprehensiveText()},
		"evaluation_data":         map[string]any{"datasets": comprehensiveText(), "motivation": comprehensiveText(), "preprocessing": comprehensiveText()},
		"training_data":           map[string]any{"datasets": comprehensiveText(), "motivation": comprehensiveText(), "preprocessing": comprehensiveText()},
		"quantitative_analyses":   map[string]any{"unitary_results": comprehensiveText(), "intersectional_results": comprehensiveText()},
		"ethical_considerations":  map[string]any{"risks": comprehensiveText(), "mitigations": comprehensiveText(), "use_cases": comprehensiveText()},
		"caveats_recommendations": map[string]any{"caveats": comprehensiveText(), "recommendations": comprehensiveText()},
	}

	c, err := contract.New("app", contract.ModelInfo{ModelName: "m"}, sampleInteractions(), contract.WithContext(map[string]any{"model_card": card}))
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Compliant)
}

func TestEvaluate_EmptyCard_NotCompliant(t *testing.T) {
	e, err := New(evaluator.Config{})
	require.NoError(t, err)

	c, err := contract.New("app", contract.ModelInfo{ModelName: "m"}, sampleInteractions(), contract.WithContext(map[string]any{"model_card": map[string]any{}}))
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Compliant)

	missing, ok := res.Details["missing_sections"].([]string)
	require.True(t, ok)
	assert.Len(t, missing, len(sections))

	references, ok := res.Details["eu_ai_act_reference"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Article 11(1)(a) - General description of the AI system", references["model_details"])
}

func sampleInteractions() []contract.Interaction {
	return []contract.Interaction{{InputText: "q", OutputText: "a"}}
}
