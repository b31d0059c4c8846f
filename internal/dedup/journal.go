// Package dedup keeps a local journal of fingerprints the ledger has accepted,
// so re-running an import does not resend rows already submitted.
package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CurrentVersion is the current journal file format version
const CurrentVersion = 1

// State is the on-disk journal.
type State struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Meta    Metadata          `json:"metadata"`
}

// Entry tracks one accepted submission.
type Entry struct {
	AccountID   int64     `json:"accountId"`
	Fingerprint string    `json:"fingerprint"`
	LedgerID    int64     `json:"ledgerId"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	Count       int       `json:"count"`
}

// Metadata contains aggregate statistics about the journal.
type Metadata struct {
	LastUpdated  time.Time `json:"lastUpdated"`
	TotalEntries int       `json:"totalEntries"`
}

// NewState creates an empty journal.
func NewState() *State {
	return &State{
		Version: CurrentVersion,
		Entries: make(map[string]*Entry),
		Meta:    Metadata{LastUpdated: time.Now()},
	}
}

// Key returns the journal key for a fingerprint on an account. The ledger
// scopes external ids per account, so the journal does the same.
func Key(accountID int64, fingerprint string) string {
	return strconv.FormatInt(accountID, 10) + ":" + fingerprint
}

// LoadState loads a journal from disk.
// Returns an os.IsNotExist error if the file doesn't exist.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse journal %s: %w", path, err)
	}
	if state.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported journal version %d (current version: %d)", state.Version, CurrentVersion)
	}
	if state.Entries == nil {
		state.Entries = make(map[string]*Entry)
	}
	return &state, nil
}

// Open loads the journal at path, or returns an empty one when the file does not exist yet.
func Open(path string) (*State, error) {
	state, err := LoadState(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	return state, err
}

// SaveState writes the journal to a temp file and renames it over path.
func SaveState(state *State, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	state.Meta.LastUpdated = time.Now()
	state.Meta.TotalEntries = len(state.Entries)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Contains reports whether fingerprint was already accepted for the account.
func (s *State) Contains(accountID int64, fingerprint string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Entries[Key(accountID, fingerprint)]
	return ok
}

// Record notes an accepted submission. Seeing the same key again bumps
// LastSeen and Count but keeps the first ledger id.
func (s *State) Record(accountID int64, fingerprint string, ledgerID int64, at time.Time) error {
	if strings.TrimSpace(fingerprint) == "" {
		return fmt.Errorf("fingerprint cannot be empty")
	}
	if accountID <= 0 {
		return fmt.Errorf("account id must be positive, got %d", accountID)
	}

	key := Key(accountID, fingerprint)
	if e, ok := s.Entries[key]; ok {
		if at.After(e.LastSeen) {
			e.LastSeen = at
		}
		e.Count++
		return nil
	}
	s.Entries[key] = &Entry{
		AccountID:   accountID,
		Fingerprint: fingerprint,
		LedgerID:    ledgerID,
		FirstSeen:   at,
		LastSeen:    at,
		Count:       1,
	}
	return nil
}

// Len returns the number of journaled submissions.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}
