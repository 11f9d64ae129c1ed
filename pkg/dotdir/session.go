package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// SessionState represents the persisted CLI session.
// It records which conversation the user is working with and a local copy of
// the transcript turns the CLI has reconciled so far.
type SessionState struct {
	// Conversation is the identifier of the active conversation.
	Conversation string `json:"conversation"`

	// Turns is the local transcript in chronological order (oldest first).
	Turns []SessionTurn `json:"turns"`
}

// SessionTurn represents a single message in the session transcript.
type SessionTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadSessionState loads the session state from a target .tabula/session.json.
// Returns nil, nil if no session state exists (fresh session).
// If overrideDir is non-empty, it is used instead of the default ~/.tabula/ location.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, sessionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSession persists the session state to a target .tabula/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes the session state file.
// This resets the state so the next command starts a fresh conversation.
// If overrideDir is non-empty, it is used instead of the default ~/.tabula/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
