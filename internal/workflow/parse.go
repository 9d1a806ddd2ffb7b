package workflow

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"

	"github.com/goccy/go-yaml"
)

// Parse decodes a manifest. The result is syntactically sound but not
// yet checked; call Validate for the full structural pass.
func Parse(data []byte) (*Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("parse workflow: empty manifest")
	}
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return &w, nil
}

// ParseAndValidate is the entry point for untrusted manifest sources.
// Parse failures are reported as a *ValidationError so callers can
// treat every rejected manifest the same way.
func ParseAndValidate(data []byte) (*Workflow, error) {
	w, err := Parse(data)
	if err != nil {
		return nil, &ValidationError{Issues: []string{err.Error()}}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	return Parse(data)
}

var (
	secretRef      = regexp.MustCompile(`\$\{\{\s*secrets\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
	looseSecretRef = regexp.MustCompile(`\$\{\{\s*secrets\.[^}]*\}\}`)
)

// SecretRefs returns the distinct secret names the manifest references
// in env values, step inputs and run commands, sorted.
func (w *Workflow) SecretRefs() []string {
	seen := make(map[string]bool)
	collect := func(s string) {
		for _, m := range secretRef.FindAllStringSubmatch(s, -1) {
			seen[m[1]] = true
		}
	}
	for _, v := range w.Env {
		collect(string(v))
	}
	for _, job := range w.Jobs {
		for _, v := range job.Env {
			collect(string(v))
		}
		for _, step := range job.Steps {
			for _, v := range step.Env {
				collect(string(v))
			}
			for _, v := range step.With {
				collect(string(v))
			}
			collect(step.Run)
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// remarshal moves an already-decoded YAML value into a typed
// destination.
func remarshal(v any, dst any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, dst)
}
