// Package registry resolves agent names to service URLs. Pipelines address
// agents by short name ("keyword", "grep_patterns"); the registry maps those
// names onto deployment URLs loaded from a JSON file so the same pipeline
// code runs against local processes or hosted agents.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPath is where the registry file is looked up when no explicit path
// is given. The MEDFLOW_AGENTS_FILE environment variable overrides it.
const DefaultPath = "config/agents.json"

// Entry describes one registered agent.
type Entry struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Registry is an immutable name-to-URL mapping.
type Registry struct {
	agents map[string]Entry
}

// New creates a registry from explicit entries.
func New(agents map[string]Entry) *Registry {
	if agents == nil {
		agents = map[string]Entry{}
	}
	return &Registry{agents: agents}
}

// Load reads a registry file of the shape {"agents": {name: {url, ...}}}.
// An empty path falls back to MEDFLOW_AGENTS_FILE, then DefaultPath.
func Load(path string) (*Registry, error) {
	if path == "" {
		path = os.Getenv("MEDFLOW_AGENTS_FILE")
	}
	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var file struct {
		Agents map[string]Entry `json:"agents"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	for name, entry := range file.Agents {
		if entry.URL == "" {
			return nil, fmt.Errorf("registry %s: agent %q has no url", path, name)
		}
	}

	return New(file.Agents), nil
}

// Save writes the registry to a file in the same shape Load reads, creating
// parent directories as needed.
func (r *Registry) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir %s: %w", dir, err)
		}
	}

	file := struct {
		Agents map[string]Entry `json:"agents"`
	}{Agents: r.agents}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write registry %s: %w", path, err)
	}

	return nil
}

// Resolve maps a name to its registered URL. Values that already look like
// URLs pass through unchanged, so callers can mix names and raw endpoints.
func (r *Registry) Resolve(nameOrURL string) (string, error) {
	if strings.HasPrefix(nameOrURL, "http://") || strings.HasPrefix(nameOrURL, "https://") {
		return nameOrURL, nil
	}

	entry, ok := r.agents[nameOrURL]
	if !ok {
		return "", fmt.Errorf("unknown agent %q (known: %s)", nameOrURL, strings.Join(r.Names(), ", "))
	}

	return entry.URL, nil
}

// Lookup returns the full entry for a registered name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	entry, ok := r.agents[name]
	return entry, ok
}

// Names lists registered agent names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
