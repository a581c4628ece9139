// Package registry resolves tool names ("subfinder", "nuclei", ...) to
// absolute executable paths once per Run and caches the result, so a stage
// that runs the same tool against many hosts pays the lookup cost once.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reconforge/pkg/helpers"
)

// Registry resolves and caches tool binary paths for one Run.
type Registry struct {
	overrides map[string]string
	localBin  string

	mu    sync.Mutex
	cache map[string]string
}

// New builds a Registry. overrides takes precedence over localBin, which
// takes precedence over the process PATH — the lookup order named in
// spec.md §4.3.
func New(overrides map[string]string, localBin string) *Registry {
	return &Registry{
		overrides: overrides,
		localBin:  localBin,
		cache:     make(map[string]string),
	}
}

// Locate returns the absolute path to name, or an error if it cannot be
// found by override, local bin/ directory, or PATH.
func (r *Registry) Locate(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[name]; ok {
		return p, nil
	}

	if override, ok := r.overrides[name]; ok {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("registry: override for %s: %w", name, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("registry: configured override for %s not found: %w", name, err)
		}
		r.cache[name] = abs
		return abs, nil
	}

	if r.localBin != "" {
		candidate := filepath.Join(r.localBin, name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", fmt.Errorf("registry: local bin for %s: %w", name, err)
			}
			r.cache[name] = abs
			return abs, nil
		}
	}

	info := helpers.FindBinary(name)
	if info.Error != nil {
		return "", fmt.Errorf("registry: %s not installed: %w", name, info.Error)
	}
	r.cache[name] = info.RealPath
	return info.RealPath, nil
}

// MustHave returns nil only if every name in names resolves, used by a
// Stage to fail fast with a single SKIPPED transition instead of failing
// midway through a batch of invocations.
func (r *Registry) MustHave(names []string) error {
	for _, n := range names {
		if _, err := r.Locate(n); err != nil {
			return err
		}
	}
	return nil
}
