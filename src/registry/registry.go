// Package registry indexes evaluator factories by name and by the metric
// identifiers they can produce, so a policy's required_metrics list can be
// resolved to the concrete evaluators that must run.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aicertify/aicertify-go/src/evaluator"
)

// Factory builds a configured Evaluator instance.
type Factory func(evaluator.Config) (evaluator.Evaluator, error)

// Registry holds evaluator factories keyed by name, plus a metric-to-evaluator
// index built from each registered evaluator's SupportedMetrics.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	metricIndex map[string]map[string]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		factories:   map[string]Factory{},
		metricIndex: map[string]map[string]struct{}{},
	}
}

// Register adds name under factory, probing it once with its own
// DefaultConfig to recover SupportedMetrics for the metric index. Registering
// the same name twice replaces the prior factory and its index entries.
func (r *Registry) Register(name string, factory Factory) error {
	probe, err := factory(evaluator.Config{})
	if err != nil {
		return fmt.Errorf("registry: probe evaluator %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.unindexLocked(name)
	r.factories[name] = factory
	for _, metric := range probe.SupportedMetrics() {
		if r.metricIndex[metric] == nil {
			r.metricIndex[metric] = map[string]struct{}{}
		}
		r.metricIndex[metric][name] = struct{}{}
	}
	return nil
}

func (r *Registry) unindexLocked(name string) {
	for metric, names := range r.metricIndex {
		delete(names, name)
		if len(names) == 0 {
			delete(r.metricIndex, metric)
		}
	}
}

// Names returns the registered evaluator names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named evaluator with cfg.
func (r *Registry) Build(name string, cfg evaluator.Config) (evaluator.Evaluator, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no evaluator registered as %q", name)
	}
	return factory(cfg)
}

// Discover returns the sorted, de-duplicated set of evaluator names that
// together support requiredMetrics. A metric with no registered evaluator is
// silently skipped: no result, error or warning is produced for it, here or
// in the orchestrator. When requiredMetrics
// is empty, Discover returns every registered evaluator ("run everything"
// per the policy loader's fallback).
func (r *Registry) Discover(requiredMetrics []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(requiredMetrics) == 0 {
		return r.namesLocked()
	}

	set := map[string]struct{}{}
	for _, metric := range requiredMetrics {
		for name := range r.metricIndex[metric] {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry with all built-in evaluators
// registered, initializing it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		registerBuiltins(defaultReg)
	})
	return defaultReg
}
