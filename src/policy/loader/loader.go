// Package loader builds an immutable, in-memory index of a policy root
// directory: categories, versions, and each folder's required metrics.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/open-policy-agent/opa/ast"
	"gopkg.in/yaml.v3"

	"github.com/aicertify/aicertify-go/src/apperrors"
)

// File is one indexed policy file.
type File struct {
	Path            string
	CategoryPath    string
	Version         string
	RequiredMetrics []string
}

// Folder groups the files found directly in one directory.
type Folder struct {
	Path  string
	Files []File
}

// Index is the immutable, post-load snapshot of a policy root directory.
type Index struct {
	root    string
	folders map[string]*Folder
	order   []string
}

var versionPattern = regexp.MustCompile(`^v\d+$`)

// Load walks root recursively and indexes every `.rego` policy file found,
// deriving each file's required_metrics from an OPA `# METADATA` annotation
// block first, a same-directory `metadata.yaml` sidecar second, and falling
// back to no declared metrics ("run everything") when neither is present.
func Load(root string) (*Index, error) {
	idx := &Index{root: root, folders: map[string]*Folder{}}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".rego" {
			return nil
		}

		dir := filepath.Dir(path)
		rel, relErr := filepath.Rel(root, dir)
		if relErr != nil {
			rel = dir
		}

		metrics, metricsErr := requiredMetricsForFile(path, dir)
		if metricsErr != nil {
			metrics = nil
		}

		f := File{
			Path:            path,
			CategoryPath:    filepath.ToSlash(rel),
			Version:         versionSegment(rel),
			RequiredMetrics: metrics,
		}

		folder, ok := idx.folders[f.CategoryPath]
		if !ok {
			folder = &Folder{Path: f.CategoryPath}
			idx.folders[f.CategoryPath] = folder
			idx.order = append(idx.order, f.CategoryPath)
		}
		folder.Files = append(folder.Files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("policy loader: walk %s: %w", root, err)
	}

	sort.Strings(idx.order)
	return idx, nil
}

// versionSegment returns the path segment matching `v\d+`, if any.
func versionSegment(categoryPath string) string {
	for _, seg := range strings.Split(filepath.ToSlash(categoryPath), "/") {
		if versionPattern.MatchString(seg) {
			return seg
		}
	}
	return ""
}

// requiredMetricsForFile parses path's OPA `# METADATA` block via
// github.com/open-policy-agent/opa/ast, falling back to a `metadata.yaml`
// sidecar in dir.
func requiredMetricsForFile(path, dir string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	module, err := ast.ParseModuleWithOpts(path, string(src), ast.ParserOptions{ProcessAnnotation: true})
	if err == nil && module != nil {
		if metrics := annotatedRequiredMetrics(module); len(metrics) > 0 {
			return metrics, nil
		}
	}

	return sidecarRequiredMetrics(dir)
}

func annotatedRequiredMetrics(module *ast.Module) []string {
	for _, a := range module.Annotations {
		if a.Custom == nil {
			continue
		}
		raw, ok := a.Custom["required_metrics"]
		if !ok {
			continue
		}
		if metrics := toStringSlice(raw); len(metrics) > 0 {
			return metrics
		}
	}
	return nil
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type metadataSidecar struct {
	RequiredMetrics []string `yaml:"required_metrics"`
}

func sidecarRequiredMetrics(dir string) ([]string, error) {
	path := filepath.Join(dir, "metadata.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sidecar metadataSidecar
	if err := yaml.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("policy loader: parse %s: %w", path, err)
	}
	return sidecar.RequiredMetrics, nil
}

// FindMatchingFolders returns the category paths whose path contains
// selector as a case-insensitive substring, in lexicographic order.
func (idx *Index) FindMatchingFolders(selector string) []string {
	selector = strings.ToLower(selector)
	var matches []string
	for _, path := range idx.order {
		if strings.Contains(strings.ToLower(path), selector) {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)
	return matches
}

// GetPoliciesByFolder returns the indexed files directly under folder.
func (idx *Index) GetPoliciesByFolder(folder string) []File {
	f, ok := idx.folders[folder]
	if !ok {
		return nil
	}
	return f.Files
}

// GetRequiredMetricsForFolder returns the de-duplicated, sorted union of
// every file's required_metrics within folder.
func (idx *Index) GetRequiredMetricsForFolder(folder string) []string {
	f, ok := idx.folders[folder]
	if !ok {
		return nil
	}
	set := map[string]struct{}{}
	for _, file := range f.Files {
		for _, m := range file.RequiredMetrics {
			set[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// GetPolicyPackagePath derives the dotted query path the policy engine
// expects from folder, rooted at "data".
func (idx *Index) GetPolicyPackagePath(folder string) string {
	segments := strings.Split(filepath.ToSlash(folder), "/")
	return "data." + strings.Join(segments, ".")
}

// ResolveFolder is the §4.7 step-2/3 convenience: resolves selector to its
// best-matching folder, returning *apperrors.NoMatchingPolicyError when
// nothing matches. When a selector matches several version segments of the
// same category (e.g. .../v1/fairness and .../v2/fairness), the
// highest-versioned one wins via semver comparison; across distinct
// categories the one whose path, with its version segment removed, sorts
// first lexicographically wins.
func (idx *Index) ResolveFolder(selector string) (string, error) {
	matches := idx.FindMatchingFolders(selector)
	if len(matches) == 0 {
		return "", &apperrors.NoMatchingPolicyError{Selector: selector}
	}
	return bestPerCategory(matches)[0], nil
}

// bestPerCategory collapses matches down to one folder per category stem
// (the path with its version segment removed), preferring the
// highest-semver-versioned folder within each stem, and returns the
// surviving folders in lexicographic stem order.
func bestPerCategory(matches []string) []string {
	bestByStem := map[string]string{}
	var stems []string
	for _, m := range matches {
		stem := stemOf(m)
		current, ok := bestByStem[stem]
		if !ok {
			bestByStem[stem] = m
			stems = append(stems, stem)
			continue
		}
		if higherVersion(m, current) {
			bestByStem[stem] = m
		}
	}
	sort.Strings(stems)

	out := make([]string, 0, len(stems))
	for _, stem := range stems {
		out = append(out, bestByStem[stem])
	}
	return out
}

// stemOf strips folder's version segment (the first path component matching
// `v\d+`), so ".../eu_ai_act/v1/fairness" and ".../eu_ai_act/v2/fairness"
// collapse to the same stem.
func stemOf(folder string) string {
	segments := strings.Split(filepath.ToSlash(folder), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if versionPattern.MatchString(seg) {
			continue
		}
		out = append(out, seg)
	}
	return strings.Join(out, "/")
}

// higherVersion reports whether candidate's version segment outranks
// current's. Folders without a parseable semver version never outrank an
// already-chosen candidate.
func higherVersion(candidate, current string) bool {
	cv := parseFolderVersion(candidate)
	if cv == nil {
		return false
	}
	uv := parseFolderVersion(current)
	if uv == nil {
		return true
	}
	return cv.GreaterThan(uv)
}

func parseFolderVersion(folder string) *semver.Version {
	seg := versionSegment(folder)
	if seg == "" {
		return nil
	}
	v, err := semver.NewVersion(strings.TrimPrefix(seg, "v"))
	if err != nil {
		return nil
	}
	return v
}
