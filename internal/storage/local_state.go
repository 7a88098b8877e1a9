package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var ErrInvalidKey = errors.New("invalid state key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// LocalState is a small file-backed key/value store for client-side session
// state (last activity timestamp, session id, tokens). One file per key.
type LocalState struct {
	basePath string
	mu       sync.Mutex
}

func NewLocalState(basePath string) (*LocalState, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, err
	}
	return &LocalState{basePath: basePath}, nil
}

func (ls *LocalState) pathFor(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(ls.basePath, key), nil
}

func (ls *LocalState) Set(key, value string) error {
	path, err := ls.pathFor(key)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Get returns ok=false when the key has never been set or was cleared.
func (ls *LocalState) Get(key string) (string, bool, error) {
	path, err := ls.pathFor(key)
	if err != nil {
		return "", false, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (ls *LocalState) Delete(key string) error {
	path, err := ls.pathFor(key)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every key.
func (ls *LocalState) Clear() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(ls.basePath, entry.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
