// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contextstore persists the session FormattingContext between
// runs so a later invocation over the same document keeps continuity
// from the previous run's output.
package contextstore

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/format-engine/pkg/types"
)

// Store loads and saves the session context. It is used exactly once at
// each session boundary: Load at start, Save at end.
type Store interface {
	// Load returns the persisted context, or an empty context when none
	// has been saved yet.
	Load() (types.FormattingContext, error)

	// Save replaces the persisted context.
	Save(types.FormattingContext) error
}

// FileStore persists the context as a YAML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the context file. A missing file is an empty context, not
// an error. A corrupt file also starts fresh: stale continuity is worth
// less than a completed run. Anything else wraps ErrPersistenceFailure.
func (f *FileStore) Load() (types.FormattingContext, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.FormattingContext{}, nil
		}
		return types.FormattingContext{}, fmt.Errorf("reading context %s: %w: %w", f.path, err, types.ErrPersistenceFailure)
	}

	var fctx types.FormattingContext
	if err := yaml.Unmarshal(data, &fctx); err != nil {
		return types.FormattingContext{}, nil
	}
	return fctx, nil
}

// Save writes the context atomically: marshal to a temp file in the
// same directory, then rename over the destination.
func (f *FileStore) Save(fctx types.FormattingContext) error {
	data, err := yaml.Marshal(&fctx)
	if err != nil {
		return fmt.Errorf("marshaling context: %w: %w", err, types.ErrPersistenceFailure)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating context directory %s: %w: %w", dir, err, types.ErrPersistenceFailure)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing context %s: %w: %w", tmp, err, types.ErrPersistenceFailure)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing context %s: %w: %w", f.path, err, types.ErrPersistenceFailure)
	}
	return nil
}

// Clear removes the persisted context. A missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing context %s: %w: %w", f.path, err, types.ErrPersistenceFailure)
	}
	return nil
}
