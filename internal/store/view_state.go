package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const viewStateFileName = "view_state.json"

// ViewState stores small, user-facing UI state for restoring the last screen on relaunch.
//
// It is best effort: callers should tolerate missing/invalid data. Tree
// expansion is deliberately absent; every tree view starts collapsed.
type ViewState struct {
	Version int `json:"version"`

	SelectedProjectID string `json:"selectedProjectId,omitempty"`
	Filter            string `json:"filter,omitempty"`

	// RecentProjectIDs is newest first.
	RecentProjectIDs []string `json:"recentProjectIds,omitempty"`
}

func (s *Store) viewStatePath() string {
	return filepath.Join(s.Dir, viewStateFileName)
}

func (s *Store) LoadViewState() (*ViewState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return &ViewState{Version: 1}, nil
	}
	b, err := os.ReadFile(s.viewStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ViewState{Version: 1}, nil
		}
		return nil, err
	}
	var st ViewState
	if err := json.Unmarshal(b, &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &ViewState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s *Store) SaveViewState(st *ViewState) error {
	if st == nil || strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.viewStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// NoteRecentProject moves id to the front of RecentProjectIDs, keeping at most max entries.
func (st *ViewState) NoteRecentProject(id string, max int) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	out := []string{id}
	for _, x := range st.RecentProjectIDs {
		if x != id && len(out) < max {
			out = append(out, x)
		}
	}
	st.RecentProjectIDs = out
}
