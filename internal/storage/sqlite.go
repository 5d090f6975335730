//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "chimed/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Save(ctx context.Context, r Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms (id, name, due, recurrence, schedule, expired)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			due = excluded.due,
			recurrence = excluded.recurrence,
			schedule = excluded.schedule,
			expired = excluded.expired`,
		r.ID, r.Name, r.Due.Format(time.RFC3339Nano), r.Recurrence, r.Schedule, boolToInt(r.Expired))
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alarms`)
	return err
}

func (s *sqliteStore) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, due, recurrence, schedule, expired FROM alarms ORDER BY due ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			due     string
			expired int
		)
		if err := rows.Scan(&r.ID, &r.Name, &due, &r.Recurrence, &r.Schedule, &expired); err != nil {
			s.log.Warn("alarm row unreadable; skipping", logx.Err(err))
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, due)
		if err != nil {
			s.log.Warn("alarm row has bad due timestamp; skipping",
				logx.String("id", r.ID), logx.Err(err))
			continue
		}
		r.Due = ts
		r.Expired = expired != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
