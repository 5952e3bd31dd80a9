// Package draft implements the ephemeral draft store: local persistence for
// notes created before the user has authenticated.
//
// The store is the Go rendition of the original client's localStorage slot: a
// single serialized array of drafts under one fixed key, here one CBOR file
// in a state directory. Newest drafts sit first, upserts replace in place,
// and migration ends with either a full clear or a rewrite that retains only
// the drafts whose promotion failed.
//
// All writes go through a temp-file rename so a crash mid-write never
// corrupts the existing draft set. A store value is safe for concurrent use,
// though in practice the sync engine is its only caller.
package draft

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/inkpad/inkpad/pkg/models"
)

// draftsFile is the single fixed key all drafts live under.
const draftsFile = "drafts.cbor"

// Store persists drafts as one CBOR array in dir.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a draft store rooted at dir, creating dir if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create draft dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, draftsFile)}, nil
}

// List returns all drafts, newest first. A missing file is an empty store;
// an unreadable or undecodable file returns the error and no drafts, leaving
// the caller to degrade.
func (s *Store) List() ([]*models.DraftNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save upserts one draft: an existing ID is replaced in place, a new one is
// prepended so the newest draft lists first.
func (s *Store) Save(d *models.DraftNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range drafts {
		if existing.ID == d.ID {
			drafts[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		drafts = append([]*models.DraftNote{d}, drafts...)
	}
	return s.write(drafts)
}

// Delete removes the draft with the given ID. Unknown IDs are a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load()
	if err != nil {
		return err
	}
	kept := drafts[:0]
	for _, d := range drafts {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(drafts) {
		return nil
	}
	return s.write(kept)
}

// ReplaceAll atomically replaces the entire draft set. Migration uses this to
// keep only the drafts whose promotion failed.
func (s *Store) ReplaceAll(drafts []*models.DraftNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(drafts) == 0 {
		return s.clear()
	}
	return s.write(drafts)
}

// Clear removes every draft.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear()
}

func (s *Store) clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear drafts: %w", err)
	}
	return nil
}

func (s *Store) load() ([]*models.DraftNote, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.DraftNote{}, nil
		}
		return nil, fmt.Errorf("failed to read drafts: %w", err)
	}
	drafts := []*models.DraftNote{}
	if err := cbor.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w", err)
	}
	return drafts, nil
}

func (s *Store) write(drafts []*models.DraftNote) error {
	data, err := cbor.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace drafts: %w", err)
	}
	return nil
}
