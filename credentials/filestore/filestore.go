package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
)

var _ credentials.Store = (*Store)(nil)

const fileMode = 0o600

// Store persists the credential keys as one JSON document. Writes go to a temp file in
// the same directory which is then renamed over the target, so a reader sees either
// the previous document or the new one.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store at path, creating the parent directory if needed.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Write(ctx context.Context, pair credentials.Pair, profile users.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := credentials.NewRecord(pair, profile)
	if err != nil {
		return err
	}
	values, err := rec.Values()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("[filestore Write] marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(data)
}

func (s *Store) Read(ctx context.Context) (credentials.Record, error) {
	if err := ctx.Err(); err != nil {
		return credentials.Record{}, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return credentials.Record{}, credentials.ErrNotFound
	}
	if err != nil {
		return credentials.Record{}, fmt.Errorf("[filestore Read] %w", err)
	}

	values := make(map[string]string, len(credentials.Keys))
	if err := json.Unmarshal(data, &values); err != nil {
		return credentials.Record{}, fmt.Errorf("[filestore Read] decode %s: %v: %w", s.path, err, credentials.ErrCorruptRecord)
	}
	return credentials.RecordFromValues(values)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore Clear] %w", err)
	}
	return nil
}

func (s *Store) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("[filestore Write] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Write] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Write] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Write] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore Write] close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("[filestore Write] rename: %w", err)
	}
	return nil
}
