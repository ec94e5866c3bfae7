package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type credentialFile struct {
	AuthToken string `yaml:"authToken"`
}

// FileStore keeps the token in a YAML file for the terminal client.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the credential file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credential: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "auditctl", "credentials.yaml"), nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Save writes the token with owner-only permissions.
func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}
	data, err := yaml.Marshal(credentialFile{AuthToken: token})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("credential: write: %w", err)
	}
	return nil
}

// Get reads the token; a missing or unreadable file means no token.
func (f *FileStore) Get() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	var stored credentialFile
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return "", false
	}
	return stored.AuthToken, stored.AuthToken != ""
}

// Remove deletes the credential file.
func (f *FileStore) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credential: remove: %w", err)
	}
	return nil
}
