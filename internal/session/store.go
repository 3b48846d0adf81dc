package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store keeps one JSON file per session under
// <data>/sessions/<workspace hash>/<id>.json.
type Store struct {
	root string
}

// NewStore returns a Store rooted in the data directory.
func NewStore(dataDir string) *Store {
	return &Store{root: filepath.Join(dataDir, "sessions")}
}

// WorkspaceHash is a short stable key for the directory a run started from.
func (s *Store) WorkspaceHash(workspacePath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(workspacePath)))
	return hex.EncodeToString(sum[:6])
}

func (s *Store) path(hash, id string) string {
	return filepath.Join(s.root, hash, id+".json")
}

// Save validates sess and writes it, replacing any previous copy.
func (s *Store) Save(sess *Session) error {
	switch {
	case sess.ID == "":
		return errors.New("session has no ID")
	case len(sess.Turns) != len(sess.Actions):
		return fmt.Errorf("session %s has %d turns but %d actions", sess.ID, len(sess.Turns), len(sess.Actions))
	}
	if sess.WorkspaceHash == "" {
		sess.WorkspaceHash = s.WorkspaceHash(sess.WorkspacePath)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	dst := s.path(sess.WorkspaceHash, sess.ID)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	// Atomic replace.
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, dst)
}

// Load reads session id saved for workspacePath.
func (s *Store) Load(id, workspacePath string) (*Session, error) {
	sess, err := readSession(s.path(s.WorkspaceHash(workspacePath), id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

// List returns the sessions saved for workspacePath, most recently
// updated first. Unreadable files are skipped.
func (s *Store) List(workspacePath string) ([]SessionMeta, error) {
	files, err := filepath.Glob(s.path(s.WorkspaceHash(workspacePath), "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	metas := make([]SessionMeta, 0, len(files))
	for _, f := range files {
		sess, err := readSession(f)
		if err != nil {
			continue
		}
		metas = append(metas, sess.Meta())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

func readSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
