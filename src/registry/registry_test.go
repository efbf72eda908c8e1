package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicertify/aicertify-go/src/evaluator"
	"github.com/aicertify/aicertify-go/src/evaluators/fairness"
)

func TestDefault_RegistersTenBuiltins(t *testing.T) {
	r := Default()
	assert.Len(t, r.Names(), 10)
}

func TestDiscover_EmptyRequiredMetrics_ReturnsAll(t *testing.T) {
	r := Default()
	names := r.Discover(nil)
	assert.Len(t, names, 10)
}

func TestDiscover_SpecificMetric_ReturnsOwningEvaluator(t *testing.T) {
	r := Default()
	names := r.Discover([]string{"fairness.score"})
	assert.Contains(t, names, "fairness")
	assert.NotContains(t, names, "accuracy")
}

func TestDiscover_AliasMetric_ResolvesSameEvaluator(t *testing.T) {
	r := Default()
	bare := r.Discover([]string{"accuracy.score"})
	aliased := r.Discover([]string{"metrics.accuracy.score"})
	assert.Equal(t, bare, aliased)
}

func TestBuild_UnknownName_Errors(t *testing.T) {
	r := Default()
	_, err := r.Build("does_not_exist", evaluator.Config{})
	require.Error(t, err)
}

func TestBuild_KnownName_Succeeds(t *testing.T) {
	r := Default()
	e, err := r.Build("risk_management", evaluator.Config{})
	require.NoError(t, err)
	assert.Equal(t, "risk_management", e.Name())
}

func TestRegister_ReplacesPriorIndexEntries(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("fairness", fairness.New))
	require.NoError(t, r.Register("fairness", fairness.New))
	assert.Len(t, r.Names(), 1)
}
