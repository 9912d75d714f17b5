package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	scheduleout "confsched/internal/modules/schedule/port/out"
	apperrors "confsched/internal/platform/errors"
)

// FileStore keeps every key in its own file under the state directory:
// blobs verbatim, sets as sorted JSON arrays, int maps as JSON objects.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(stateDir string) scheduleout.Store {
	return &FileStore{dir: stateDir}
}

func (s *FileStore) ReadBlob(_ context.Context, key string) ([]byte, error) {
	path, err := s.pathFor(key, "")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) WriteBlob(_ context.Context, key string, data []byte) error {
	path, err := s.pathFor(key, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(path, data)
}

func (s *FileStore) ReadStringSet(_ context.Context, key string) (map[string]struct{}, error) {
	path, err := s.pathFor(key, ".set.json")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []string{}
	if err := readJSON(path, &items); err != nil {
		return nil, fmt.Errorf("read set %s: %w", key, err)
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set, nil
}

func (s *FileStore) WriteStringSet(_ context.Context, key string, set map[string]struct{}) error {
	path, err := s.pathFor(key, ".set.json")
	if err != nil {
		return err
	}
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode set %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(path, payload)
}

func (s *FileStore) ReadIntMap(_ context.Context, key string) (map[string]int, error) {
	path, err := s.pathFor(key, ".map.json")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values := map[string]int{}
	if err := readJSON(path, &values); err != nil {
		return nil, fmt.Errorf("read map %s: %w", key, err)
	}
	if values == nil {
		values = map[string]int{}
	}
	return values, nil
}

func (s *FileStore) WriteIntMap(_ context.Context, key string, values map[string]int) error {
	path, err := s.pathFor(key, ".map.json")
	if err != nil {
		return err
	}
	if values == nil {
		values = map[string]int{}
	}
	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode map %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(path, payload)
}

func (s *FileStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, suffix := range []string{"", ".set.json", ".map.json"} {
		path, err := s.pathFor(key, suffix)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

func (s *FileStore) pathFor(key, suffix string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid store key %q", apperrors.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key+suffix), nil
}

// readJSON leaves target untouched when the file does not exist.
func readJSON(path string, target any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
