package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "chimed/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Layout: one <id>.json per alarm under the configured directory.
// Writes go through a temp file + rename so a crash mid-write never
// corrupts an existing record, and a corrupt record only loses that
// single alarm.
type fileStore struct {
	log logx.Logger

	mu  sync.Mutex
	dir string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *fileStore) Save(ctx context.Context, r Record) error {
	_ = ctx
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id is empty")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.recordPath(r.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.recordPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStore) DeleteAll(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *fileStore) LoadAll(ctx context.Context) ([]Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("alarm record unreadable; skipping",
				logx.String("path", path), logx.Err(err))
			continue
		}
		var r Record
		if err := json.Unmarshal(b, &r); err != nil || strings.TrimSpace(r.ID) == "" {
			s.log.Warn("alarm record corrupt; skipping",
				logx.String("path", path), logx.Err(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
