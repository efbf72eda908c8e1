package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternJudge_Toxicity_CleanText(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionToxicity,
		OutputText: "The quarterly report shows steady improvement across all regions.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestPatternJudge_Toxicity_HostileText(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionToxicity,
		OutputText: "You are so stupid and worthless, I hate dealing with you.",
	})
	require.NoError(t, err)
	assert.Less(t, res.Score, 1.0)
	assert.NotEmpty(t, res.Reason)
}

func TestPatternJudge_Manipulation_CoercivePhrase(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionManipulation,
		OutputText: "You have no choice but to comply, you must obey immediately.",
	})
	require.NoError(t, err)
	assert.Less(t, res.Score, 0.7)
}

func TestPatternJudge_FactualConsistency_NoContext(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionFactualConsistency,
		OutputText: "The capital of France is Paris.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Score)
	assert.Less(t, res.Confidence, 0.5)
}

func TestPatternJudge_FactualConsistency_OverlapsContext(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionFactualConsistency,
		OutputText: "the capital of france is paris",
		Context:    []string{"Paris is the capital of France and a major European city."},
	})
	require.NoError(t, err)
	assert.Greater(t, res.Score, 0.5)
}

func TestPatternJudge_Hallucination_DerivesFromConsistency(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  CriterionHallucination,
		OutputText: "the sky is green and made of cheese",
		Context:    []string{"The sky appears blue due to Rayleigh scattering."},
	})
	require.NoError(t, err)
	assert.Less(t, res.Score, 0.5)
}

func TestPatternJudge_UnknownCriterion_NoRulesMeansFullScore(t *testing.T) {
	j := NewPatternJudge()
	res, err := j.JudgeCriterion(context.Background(), Request{
		Criterion:  Criterion("unregistered"),
		OutputText: "anything at all",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestPatternJudge_RespectsCancelledContext(t *testing.T) {
	j := NewPatternJudge()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := j.JudgeCriterion(ctx, Request{Criterion: CriterionToxicity, OutputText: "hello"})
	assert.Error(t, err)
}

func TestNew_ReturnsPatternJudgeWhenMockAllowed(t *testing.T) {
	j, ok := New(Config{UseMockIfUnavailable: true})
	require.True(t, ok)
	assert.Equal(t, "pattern", j.Name())
}

func TestNew_ReturnsFalseWhenNoBackendAndNoMock(t *testing.T) {
	j, ok := New(Config{})
	assert.False(t, ok)
	assert.Nil(t, j)
}

func TestNew_ReturnsHTTPJudgeWhenEndpointSet(t *testing.T) {
	j, ok := New(Config{Endpoint: "http://localhost:9999"})
	require.True(t, ok)
	assert.Equal(t, "http", j.Name())
}
