package storage

import (
	"context"
	"errors"
	"strings"

	logx "cronsmith/pkg/logx"
)

// Store is the minimal persistence API used by the reconciler.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	PutJob(ctx context.Context, r JobRecord) error
	GetJob(ctx context.Context, name string) (JobRecord, bool, error)
	DeleteJob(ctx context.Context, name string) error
	ListJobs(ctx context.Context) ([]JobRecord, error)
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
