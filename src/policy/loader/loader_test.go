package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_IndexesByCategoryAndVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "international", "eu_ai_act", "v1", "fairness", "policy.rego"), "package international.eu_ai_act.v1.fairness\n\ndefault allow = false\n")

	idx, err := Load(root)
	require.NoError(t, err)

	matches := idx.FindMatchingFolders("eu_ai_act")
	require.Len(t, matches, 1)
	assert.Equal(t, "international/eu_ai_act/v1/fairness", matches[0])

	files := idx.GetPoliciesByFolder(matches[0])
	require.Len(t, files, 1)
	assert.Equal(t, "v1", files[0].Version)
}

func TestLoad_RequiredMetricsFromSidecar(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "international", "eu_ai_act", "v1", "fairness")
	writeFile(t, filepath.Join(dir, "policy.rego"), "package international.eu_ai_act.v1.fairness\n\ndefault allow = false\n")
	writeFile(t, filepath.Join(dir, "metadata.yaml"), "required_metrics:\n  - fairness.score\n  - content_safety.toxic_fraction\n")

	idx, err := Load(root)
	require.NoError(t, err)

	metrics := idx.GetRequiredMetricsForFolder("international/eu_ai_act/v1/fairness")
	assert.Equal(t, []string{"content_safety.toxic_fraction", "fairness.score"}, metrics)
}

func TestLoad_NoMetadata_EmptyRequiredMetrics(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "general", "v1", "basic", "policy.rego"), "package general.v1.basic\n\ndefault allow = true\n")

	idx, err := Load(root)
	require.NoError(t, err)

	metrics := idx.GetRequiredMetricsForFolder("general/v1/basic")
	assert.Empty(t, metrics)
}

func TestFindMatchingFolders_NoMatch_Empty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "general", "v1", "basic", "policy.rego"), "package general.v1.basic\n")

	idx, err := Load(root)
	require.NoError(t, err)
	assert.Empty(t, idx.FindMatchingFolders("nonexistent"))
}

func TestGetPolicyPackagePath_DerivesDottedPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "international", "eu_ai_act", "v1", "fairness", "policy.rego"), "package international.eu_ai_act.v1.fairness\n")

	idx, err := Load(root)
	require.NoError(t, err)
	path := idx.GetPolicyPackagePath("international/eu_ai_act/v1/fairness")
	assert.Equal(t, "data.international.eu_ai_act.v1.fairness", path)
}

func TestResolveFolder_NoMatch_ReturnsNoMatchingPolicyError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "general", "v1", "basic", "policy.rego"), "package general.v1.basic\n")

	idx, err := Load(root)
	require.NoError(t, err)

	_, err = idx.ResolveFolder("does_not_exist")
	require.Error(t, err)
}

func TestResolveFolder_MultipleVersions_PrefersHighestSemver(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "international", "eu_ai_act", "v1", "fairness", "policy.rego"), "package international.eu_ai_act.v1.fairness\n")
	writeFile(t, filepath.Join(root, "international", "eu_ai_act", "v2", "fairness", "policy.rego"), "package international.eu_ai_act.v2.fairness\n")
	writeFile(t, filepath.Join(root, "international", "eu_ai_act", "v10", "fairness", "policy.rego"), "package international.eu_ai_act.v10.fairness\n")

	idx, err := Load(root)
	require.NoError(t, err)

	folder, err := idx.ResolveFolder("eu_ai_act")
	require.NoError(t, err)
	assert.Equal(t, "international/eu_ai_act/v10/fairness", folder)
}

func TestResolveFolder_DistinctCategories_LexicographicTieBreak(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "general", "v1", "basic", "policy.rego"), "package general.v1.basic\n")
	writeFile(t, filepath.Join(root, "general", "v1", "extended", "policy.rego"), "package general.v1.extended\n")

	idx, err := Load(root)
	require.NoError(t, err)

	folder, err := idx.ResolveFolder("general")
	require.NoError(t, err)
	assert.Equal(t, "general/v1/basic", folder)
}
