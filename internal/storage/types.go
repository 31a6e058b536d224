package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// JobRecord is the installed state of one cron job, keyed by name.
// Hash covers everything that lands on disk (schedule, command, env) so a
// hash match means the installed entry needs no rewrite.
type JobRecord struct {
	Name      string    `json:"name"`
	User      string    `json:"user"`
	Schedule  string    `json:"schedule"`
	Command   string    `json:"command"`
	Backend   string    `json:"backend"`
	Hash      uint64    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditEntry records one install/remove action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Node    string    `json:"node"`
	Job     string    `json:"job"`
	Action  string    `json:"action"`
	Backend string    `json:"backend"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
