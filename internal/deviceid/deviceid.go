// Package deviceid provides persistent node ID management
package deviceid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// ConfigDir is the directory for lanping state
	ConfigDir = ".lanping"
	// NodeIDFile is the filename for the node ID
	NodeIDFile = "node_id"
)

// GetOrCreate returns the node ID stored in ~/.lanping/node_id, creating
// one if it doesn't exist
func GetOrCreate() (string, error) {
	path, err := DefaultPath()
	if err != nil {
		return "", err
	}
	return GetOrCreateAt(path)
}

// GetOrCreateAt is GetOrCreate for an explicit file path
func GetOrCreateAt(path string) (string, error) {
	id, err := readID(path)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	id = uuid.New().String()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("failed to write node id: %w", err)
	}
	return id, nil
}

// Get returns the stored node ID, or empty string if none exists
func Get() (string, error) {
	path, err := DefaultPath()
	if err != nil {
		return "", err
	}
	id, err := readID(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	return id, err
}

// DefaultPath returns ~/.lanping/node_id
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDir, NodeIDFile), nil
}

func readID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
