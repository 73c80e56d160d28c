package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/vignesh-goutham/hermes/pkg/types"
)

// FileStore keeps tokens in a local JSON file for development
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the token file
func (s *FileStore) Load(_ context.Context) (*types.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading %s: %w", s.path, err)
	}

	var t types.Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", s.path, err)
	}
	return &t, nil
}

// Save writes the token file with owner-only permissions
func (s *FileStore) Save(_ context.Context, t *types.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding tokens: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("error writing %s: %w", s.path, err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("error writing %s: %w", s.path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("error writing %s: %w", s.path, err)
	}
	return nil
}
