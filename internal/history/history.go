// Package history remembers the targets sockcat has connected to so
// they can be listed with --recent.  The list is a small YAML file.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout.
type document struct {
	ConnectTo []string `yaml:"connect_to"`
}

// Store is the set of recent "host:port" targets.
type Store struct {
	path string

	mu      sync.Mutex
	targets map[string]struct{}
}

// DefaultPath returns ~/.sockcat/history.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sockcat", "history.yaml")
	}
	return filepath.Join(home, ".sockcat", "history.yaml")
}

// Open loads the store at path.  A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, targets: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("history: parse %s: %w", path, err)
	}
	for _, t := range doc.ConnectTo {
		if t != "" {
			s.targets[t] = struct{}{}
		}
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

// Add records target and reports whether it was new.
func (s *Store) Add(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[target]; ok {
		return false
	}
	s.targets[target] = struct{}{}
	return true
}

// Targets returns the recorded targets in sorted order.
func (s *Store) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.targets))
	for t := range s.targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Save writes the store, creating its directory if needed.  The file
// is replaced atomically.
func (s *Store) Save() error {
	data, err := yaml.Marshal(document{ConnectTo: s.Targets()})
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("history: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}
