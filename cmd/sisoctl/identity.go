package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pliu/siso/internal/client"
)

// identity is the device-local state the web client keeps in local storage.
type identity struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName,omitempty"`
	Aliases     map[string]string `json:"aliases,omitempty"`
}

func defaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".siso-identity.json"
	}
	return filepath.Join(dir, "siso", "identity.json")
}

// loadIdentity reads path, creating a fresh identity on first use.
func loadIdentity(path string) (*identity, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		id := &identity{UserID: client.NewUserID()}
		return id, id.save(path)
	}
	if err != nil {
		return nil, err
	}
	var id identity
	if err := json.Unmarshal(buf, &id); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("%s has no userId", path)
	}
	return &id, nil
}

func (id *identity) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o600)
}
