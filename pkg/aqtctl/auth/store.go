package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// TokenStore persists a single raw token.
type TokenStore interface {
	// Save overwrites any previously stored token.
	Save(token string) error
	// Load returns found=false, not an error, when nothing is stored.
	Load() (token string, found bool, err error)
	// Delete removes the token. A missing token is not an error.
	Delete() error
}

// FileStore keeps the token verbatim in a file readable only by the owner.
type FileStore struct {
	Path string
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(s.Path, 0o600)
}

func (s *FileStore) Load() (string, bool, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read token: %w", err)
	}
	return string(content), true, nil
}

func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// KeyringStore keeps the token in the OS keychain under Service/User.
type KeyringStore struct {
	Service string
	User    string
}

func (s *KeyringStore) Save(token string) error {
	if err := keyring.Set(s.Service, s.User, token); err != nil {
		return fmt.Errorf("failed to store token in keychain: %w", err)
	}
	return nil
}

func (s *KeyringStore) Load() (string, bool, error) {
	token, err := keyring.Get(s.Service, s.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read token from keychain: %w", err)
	}
	return token, true, nil
}

func (s *KeyringStore) Delete() error {
	if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keychain: %w", err)
	}
	return nil
}
