package reconcile

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cronsmith/internal/cron"
	"cronsmith/internal/eventbus"
	"cronsmith/internal/job"
	"cronsmith/internal/node"
	"cronsmith/internal/storage"
	logx "cronsmith/pkg/logx"
)

// DesiredJob is one job from configuration. Disabled jobs stay in config but
// are converged to "absent".
type DesiredJob struct {
	Descriptor job.Descriptor
	Disabled   bool
}

// Result counts what one Apply pass did. Rejected jobs failed validation and
// were skipped; they never abort the pass.
type Result struct {
	Installed int
	Removed   int
	Unchanged int
	Rejected  int
}

// Options tunes the reconciler.
type Options struct {
	// DryRun logs and publishes planned changes without touching cron or
	// the store.
	DryRun bool

	// OpsPerSec rate-limits install/remove operations. 0 means unlimited.
	OpsPerSec int
}

// Service converges the desired job set onto the node's cron backend.
//
// Each pass resolves, validates, and compiles every desired job, installs
// entries whose compiled form changed, and removes entries that are disabled
// or no longer desired. State tracking (for orphan removal and change
// detection) goes through the store when one is configured.
type Service struct {
	log       logx.Logger
	ident     node.Identity
	backend   job.Backend
	installer cron.Installer
	store     storage.Store // may be nil
	bus       eventbus.Bus  // may be nil
	limiter   *rate.Limiter // may be nil
	dryRun    bool
}

func New(ident node.Identity, backend job.Backend, installer cron.Installer, store storage.Store, bus eventbus.Bus, opts Options, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	var limiter *rate.Limiter
	if opts.OpsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.OpsPerSec), 1)
	}
	return &Service{
		log:       log,
		ident:     ident,
		backend:   backend,
		installer: installer,
		store:     store,
		bus:       bus,
		limiter:   limiter,
		dryRun:    opts.DryRun,
	}
}

// Apply converges cron to the desired set. Per-job failures are logged,
// audited, and counted; the pass continues with the remaining jobs. The
// returned error covers pass-level failures only (e.g. store unavailable).
func (s *Service) Apply(ctx context.Context, desired []DesiredJob) (Result, error) {
	var res Result
	seen := make(map[string]struct{}, len(desired))

	for _, dj := range desired {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := strings.TrimSpace(dj.Descriptor.Name)
		if name == "" {
			res.Rejected++
			continue
		}
		if _, dup := seen[name]; dup {
			s.log.Warn("duplicate job name; later definition ignored", logx.String("job", name))
			res.Rejected++
			continue
		}
		seen[name] = struct{}{}

		if dj.Disabled {
			if err := s.removeJob(ctx, name, dj.Descriptor.User, &res); err != nil {
				s.log.Error("remove failed", logx.String("job", name), logx.Err(err))
			}
			continue
		}
		if err := s.installJob(ctx, dj.Descriptor, &res); err != nil {
			s.log.Error("install failed", logx.String("job", dj.Descriptor.Name), logx.Err(err))
		}
	}

	// Orphans: previously installed jobs that are no longer desired.
	if s.store != nil {
		known, err := s.store.ListJobs(ctx)
		if err != nil {
			s.publishApply(res, err)
			return res, fmt.Errorf("list installed jobs: %w", err)
		}
		for _, rec := range known {
			if _, ok := seen[rec.Name]; ok {
				continue
			}
			if err := s.removeJob(ctx, rec.Name, rec.User, &res); err != nil {
				s.log.Error("orphan remove failed", logx.String("job", rec.Name), logx.Err(err))
			}
		}
	}

	s.publishApply(res, nil)
	s.log.Info("apply pass done",
		logx.Int("installed", res.Installed),
		logx.Int("removed", res.Removed),
		logx.Int("unchanged", res.Unchanged),
		logx.Int("rejected", res.Rejected),
		logx.Bool("dry_run", s.dryRun),
	)
	return res, nil
}

func (s *Service) installJob(ctx context.Context, d job.Descriptor, res *Result) error {
	started := time.Now()

	resolved := job.Resolve(d, s.ident.Platform)
	if err := job.Validate(resolved); err != nil {
		res.Rejected++
		s.log.Warn("job rejected", logx.String("job", d.Name), logx.Err(err))
		s.publishJob(eventbus.TypeJobRejected, d.Name, resolved.User, err)
		s.audit(ctx, d.Name, "reject", err, started)
		return nil
	}

	seed := job.Seed(resolved, s.ident.Name)
	delay := job.SplayDelay(resolved, seed)
	command := job.CompileCommand(resolved, delay)

	entry := cron.Entry{
		Name:        resolved.Name,
		User:        resolved.User,
		Schedule:    resolved.Schedule(),
		Command:     command,
		MailTo:      resolved.MailTo,
		Environment: resolved.Environment,
	}
	hash := entryHash(entry, s.backend)

	if prev, ok, err := s.getRecord(ctx, resolved.Name); err != nil {
		return err
	} else if ok && prev.Hash == hash {
		res.Unchanged++
		// Reinstall anyway: the installer is a cheap no-op when the
		// on-disk entry matches, and this heals out-of-band drift.
		if !s.dryRun {
			if err := s.waitOp(ctx); err != nil {
				return err
			}
			if err := s.installer.Install(ctx, entry); err != nil {
				s.audit(ctx, resolved.Name, "install", err, started)
				return err
			}
		}
		s.publishJob(eventbus.TypeJobUnchanged, resolved.Name, resolved.User, nil)
		return nil
	}

	if next, err := entry.Schedule.NextRun(time.Now()); err == nil {
		s.log.Debug("next run",
			logx.String("job", resolved.Name),
			logx.String("schedule", entry.Schedule.String()),
			logx.Int("splay_delay", delay),
			logx.Time("at", next),
		)
	}

	if s.dryRun {
		res.Installed++
		s.log.Info("would install", logx.String("job", resolved.Name), logx.String("command", command))
		s.publishJob(eventbus.TypeJobInstalled, resolved.Name, resolved.User, nil)
		return nil
	}

	// Best-effort: the compiled command writes its log here.
	if err := os.MkdirAll(resolved.LogDirectory, 0o755); err != nil {
		s.log.Debug("log directory create failed", logx.String("dir", resolved.LogDirectory), logx.Err(err))
	}

	if err := s.waitOp(ctx); err != nil {
		return err
	}
	if err := s.installer.Install(ctx, entry); err != nil {
		res.Rejected++
		s.publishJob(eventbus.TypeJobRejected, resolved.Name, resolved.User, err)
		s.audit(ctx, resolved.Name, "install", err, started)
		return err
	}

	if s.store != nil {
		rec := storage.JobRecord{
			Name:      resolved.Name,
			User:      resolved.User,
			Schedule:  resolved.Schedule().String(),
			Command:   command,
			Backend:   s.backend.String(),
			Hash:      hash,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.store.PutJob(ctx, rec); err != nil {
			return fmt.Errorf("record job %s: %w", resolved.Name, err)
		}
	}

	res.Installed++
	s.publishJob(eventbus.TypeJobInstalled, resolved.Name, resolved.User, nil)
	s.audit(ctx, resolved.Name, "install", nil, started)
	return nil
}

func (s *Service) removeJob(ctx context.Context, name, user string, res *Result) error {
	started := time.Now()
	if strings.TrimSpace(user) == "" {
		user = job.DefaultUser
	}

	if s.dryRun {
		res.Removed++
		s.log.Info("would remove", logx.String("job", name), logx.String("user", user))
		s.publishJob(eventbus.TypeJobRemoved, name, user, nil)
		return nil
	}

	if err := s.waitOp(ctx); err != nil {
		return err
	}
	if err := s.installer.Remove(ctx, name, user); err != nil {
		s.audit(ctx, name, "remove", err, started)
		return err
	}
	if s.store != nil {
		if err := s.store.DeleteJob(ctx, name); err != nil {
			return fmt.Errorf("forget job %s: %w", name, err)
		}
	}

	res.Removed++
	s.publishJob(eventbus.TypeJobRemoved, name, user, nil)
	s.audit(ctx, name, "remove", nil, started)
	return nil
}

func (s *Service) getRecord(ctx context.Context, name string) (storage.JobRecord, bool, error) {
	if s.store == nil {
		return storage.JobRecord{}, false, nil
	}
	return s.store.GetJob(ctx, name)
}

func (s *Service) waitOp(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *Service) publishJob(typ, name, user string, opErr error) {
	if s.bus == nil {
		return
	}
	ev := eventbus.JobEvent{
		Job:     name,
		User:    user,
		Backend: s.backend.String(),
		DryRun:  s.dryRun,
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

func (s *Service) publishApply(res Result, passErr error) {
	if s.bus == nil {
		return
	}
	typ := eventbus.TypeApplyDone
	ev := eventbus.ApplyEvent{
		Installed: res.Installed,
		Removed:   res.Removed,
		Unchanged: res.Unchanged,
		Rejected:  res.Rejected,
		DryRun:    s.dryRun,
	}
	if passErr != nil {
		typ = eventbus.TypeApplyFailed
		ev.Error = passErr.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

func (s *Service) audit(ctx context.Context, name, action string, opErr error, started time.Time) {
	if s.store == nil || s.dryRun {
		return
	}
	e := storage.AuditEntry{
		At:      time.Now().UTC(),
		Node:    s.ident.Name,
		Job:     name,
		Action:  action,
		Backend: s.backend.String(),
		OK:      opErr == nil,
		TookMS:  time.Since(started).Milliseconds(),
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Debug("audit append failed", logx.Err(err))
	}
}

// entryHash is the change-detection fingerprint for one installed entry.
// It covers everything that ends up on disk, so any edit to the schedule,
// command, mail routing, environment, or backend triggers a reinstall.
func entryHash(e cron.Entry, backend job.Backend) uint64 {
	h := fnv.New64a()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.Write([]byte(p))
			_, _ = h.Write([]byte{0})
		}
	}
	write(backend.String(), e.Name, e.User, e.Schedule.String(), e.Command, e.MailTo)

	keys := make([]string, 0, len(e.Environment))
	for k := range e.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, e.Environment[k])
	}
	return h.Sum64()
}
