// Package secrets stores the Lunch Money access token.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"getricher/internal/budget"
)

var ErrEmptyToken = errors.New("empty token")

// FileStore keeps the token in a single file readable only by the owner.
type FileStore struct {
	path string
}

// Ensure interface conformance
var (
	_ budget.TokenStore  = (*FileStore)(nil)
	_ budget.TokenWriter = (*FileStore)(nil)
	_ budget.TokenStore  = EnvStore("")
	_ budget.TokenStore  = Static("")
	_ budget.TokenStore  = Chain(nil)
)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (s *FileStore) Path() string { return s.path }

// GetToken returns the stored token. A missing or blank file means no token.
func (s *FileStore) GetToken() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

// SaveToken replaces the stored token atomically.
func (s *FileStore) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("install token file: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an error.
func (s *FileStore) DeleteToken() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete token file: %w", err)
	}
	return nil
}

// EnvStore reads the token from an environment variable.
type EnvStore string

func (e EnvStore) GetToken() (string, bool) {
	token := strings.TrimSpace(os.Getenv(string(e)))
	return token, token != ""
}

// Static always returns the same token; used by the demo backend.
type Static string

func (s Static) GetToken() (string, bool) {
	return string(s), s != ""
}

// Chain returns the first token found, in order.
type Chain []budget.TokenStore

func (c Chain) GetToken() (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if token, ok := s.GetToken(); ok {
			return token, true
		}
	}
	return "", false
}
