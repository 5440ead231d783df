package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDir returns the XDG data directory for devwatch.
// It respects XDG_DATA_HOME if set, otherwise falls back to ~/.local/share/devwatch
func DataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "devwatch"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "devwatch"), nil
}

// DefaultDatabasePath returns the default local database location, creating
// the data directory if needed.
func DefaultDatabasePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "devwatch.db"), nil
}
