// Package settings reads the persisted JSON settings document. Values are
// re-read on every call so edits made by another process apply without a
// restart. A missing or unreadable document yields the zero value, which is
// the non-disclosure default.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LAN holds the sharing-related toggles. Both default to false: the node
// advertises only its host name unless the user opted in.
type LAN struct {
	BroadcastDisplayName bool `json:"broadcastDisplayName"`
	BroadcastLoginName   bool `json:"broadcastLoginName"`
}

type document struct {
	LAN LAN `json:"lan"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath resolves ~/lanlink/settings.json, creating the directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, "lanlink")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create settings directory: %w", err)
	}

	return filepath.Join(dir, "settings.json"), nil
}

// LAN reads the lan section at call time.
func (s *Store) LAN() LAN {
	var doc document

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc.LAN
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return LAN{}
	}

	return doc.LAN
}

// Save writes the lan section back, preserving nothing else; the document is
// owned by this process.
func (s *Store) Save(lan LAN) error {
	data, err := json.MarshalIndent(document{LAN: lan}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}
