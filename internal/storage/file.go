package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "cronsmith/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl         (append-only JSON Lines)
//   - <prefix>.jobs.snapshot.json  (periodic snapshot)
//   - <prefix>.jobs.journal.jsonl  (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File

	jobsSnapshotPath string
	jobsJournalFile  *os.File
	jobs             map[string]JobRecord

	jobWrites int
}

// journalRecord is one journal line: an upsert, or a tombstone when Deleted.
type journalRecord struct {
	Deleted bool      `json:"deleted,omitempty"`
	Job     JobRecord `json:"job"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	snapPath := prefix + ".jobs.snapshot.json"
	journalPath := prefix + ".jobs.journal.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	// Load job state from snapshot + journal.
	jobs := map[string]JobRecord{}
	_ = loadJobsSnapshot(snapPath, jobs)
	_ = replayJobsJournal(journalPath, jobs)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:              log,
		auditFile:        af,
		jobsSnapshotPath: snapPath,
		jobsJournalFile:  jf,
		jobs:             jobs,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.jobsJournalFile != nil {
		err2 = s.jobsJournalFile.Close()
		s.jobsJournalFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) PutJob(ctx context.Context, r JobRecord) error {
	_ = ctx
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobsJournalFile == nil {
		return errors.New("jobs journal closed")
	}
	if s.jobs == nil {
		s.jobs = map[string]JobRecord{}
	}
	s.jobs[r.Name] = r
	return s.appendJournalLocked(journalRecord{Job: r})
}

func (s *fileStore) GetJob(ctx context.Context, name string) (JobRecord, bool, error) {
	_ = ctx
	name = strings.TrimSpace(name)
	if name == "" {
		return JobRecord{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[name]
	return r, ok, nil
}

func (s *fileStore) DeleteJob(ctx context.Context, name string) error {
	_ = ctx
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobsJournalFile == nil {
		return errors.New("jobs journal closed")
	}
	if _, ok := s.jobs[name]; !ok {
		return nil
	}
	delete(s.jobs, name)
	return s.appendJournalLocked(journalRecord{Deleted: true, Job: JobRecord{Name: name}})
}

func (s *fileStore) ListJobs(ctx context.Context) ([]JobRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobRecord, 0, len(s.jobs))
	for _, r := range s.jobs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fileStore) appendJournalLocked(rec journalRecord) error {
	if err := json.NewEncoder(s.jobsJournalFile).Encode(rec); err != nil {
		return err
	}
	s.jobWrites++
	if s.jobWrites%256 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("jobs compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	if s.jobs == nil {
		return nil
	}
	tmp := s.jobsSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.jobs); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.jobsSnapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.jobsJournalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.jobsJournalFile.Seek(0, 2)
	return err
}

func loadJobsSnapshot(path string, out map[string]JobRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]JobRecord
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJobsJournal(path string, out map[string]JobRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		var rec journalRecord
		if err := json.Unmarshal(s.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Job.Name == "" {
			continue
		}
		if rec.Deleted {
			delete(out, rec.Job.Name)
			continue
		}
		out[rec.Job.Name] = rec.Job
	}
	return s.Err()
}
