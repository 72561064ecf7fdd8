package taleweave

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all sessions as one JSON file. Every save rewrites the
// whole file through a temp-file rename, which is plenty for the session
// counts a single instance serves.
type FileStore struct {
	mu       sync.Mutex
	path     string
	sessions map[string]SessionState
}

// NewFileStore loads existing sessions from path, creating the parent
// directory if needed. A missing file is an empty store, not an error.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}
	fs := &FileStore{
		path:     path,
		sessions: make(map[string]SessionState),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.sessions); err != nil {
			return nil, fmt.Errorf("parsing session file: %w", err)
		}
	}
	return fs, nil
}

func (f *FileStore) Save(state SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[state.ID] = state
	return f.flush()
}

func (f *FileStore) Load(id string) (SessionState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.sessions[id]
	return state, ok, nil
}

func (f *FileStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return nil
	}
	delete(f.sessions, id)
	return f.flush()
}

func (f *FileStore) flush() error {
	data, err := json.MarshalIndent(f.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}
