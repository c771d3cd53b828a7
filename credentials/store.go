// Package credentials persists the logged-in user's tokens in a TOML file.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// UserConfig is the on-disk login: the employee plus the OAuth tokens.
// The refresh token is stored in plaintext, so the file is written 0600.
type UserConfig struct {
	EmployeeID         int       `toml:"employee_id"`
	Email              string    `toml:"email"`
	Name               string    `toml:"name"`
	AccessToken        string    `toml:"access_token"`
	AccessTokenExpires time.Time `toml:"access_token_expires"`
	RefreshToken       string    `toml:"refresh_token"`
}

// Store reads and writes one credential file.
type Store struct {
	path string
}

// NewStore creates a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns ~/.floq/user-config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find your home directory: %w", err)
	}
	return filepath.Join(home, ".floq", "user-config.toml"), nil
}

// Path is the credential file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the credential file. A missing file is not an error: it returns nil, nil.
func (s *Store) Load() (*UserConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var cfg UserConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return &cfg, nil
}

// Save replaces the credential file with cfg, creating its directory if needed.
// The write goes through a temp file and a rename under the lock file, so a
// reader never sees a partial file.
func (s *Store) Save(cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	lock, err := acquireFileLock(s.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tempFile, err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename %s: %v; additionally failed to remove it: %w",
				tempFile,
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename %s to %s: %w", tempFile, s.path, err)
	}

	return nil
}

// Delete removes the credential file. Deleting a missing file succeeds.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}
