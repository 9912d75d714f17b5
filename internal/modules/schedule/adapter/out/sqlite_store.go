package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	scheduleout "confsched/internal/modules/schedule/port/out"
	apperrors "confsched/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const (
	kindBlob = "blob"
	kindSet  = "set"
	kindMap  = "map"
)

// SQLiteStore keeps all keys in one kv table. Sets and maps are stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

var _ scheduleout.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv (
  kind TEXT NOT NULL,
  key TEXT NOT NULL,
  payload BLOB NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (kind, key)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReadBlob(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, kindBlob, key)
}

func (s *SQLiteStore) WriteBlob(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return s.put(ctx, kindBlob, key, data)
}

func (s *SQLiteStore) ReadStringSet(ctx context.Context, key string) (map[string]struct{}, error) {
	raw, err := s.get(ctx, kindSet, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []string{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode set %s: %w", key, err)
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set, nil
}

func (s *SQLiteStore) WriteStringSet(ctx context.Context, key string, set map[string]struct{}) error {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode set %s: %w", key, err)
	}
	return s.put(ctx, kindSet, key, payload)
}

func (s *SQLiteStore) ReadIntMap(ctx context.Context, key string) (map[string]int, error) {
	raw, err := s.get(ctx, kindMap, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]int{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", key, err)
	}
	if values == nil {
		values = map[string]int{}
	}
	return values, nil
}

func (s *SQLiteStore) WriteIntMap(ctx context.Context, key string, values map[string]int) error {
	if values == nil {
		values = map[string]int{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode map %s: %w", key, err)
	}
	return s.put(ctx, kindMap, key, payload)
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, kind, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM kv WHERE kind = ? AND key = ?`, kind, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", kind, key, err)
	}
	return payload, nil
}

func (s *SQLiteStore) put(ctx context.Context, kind, key string, payload []byte) error {
	const stmt = `
INSERT INTO kv (kind, key, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(kind, key) DO UPDATE SET
  payload=excluded.payload,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, kind, key, payload, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert %s %s: %w", kind, key, err)
	}
	return nil
}
