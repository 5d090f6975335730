package storage

import (
	"context"
	"errors"
	"strings"

	logx "chimed/pkg/logx"
)

// Store is the durable record API used by the alarm store.
//
// Implementations must treat a single unreadable record as a warning,
// not a failure: LoadAll returns every record it could decode.
type Store interface {
	Save(ctx context.Context, r Record) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	LoadAll(ctx context.Context) ([]Record, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
