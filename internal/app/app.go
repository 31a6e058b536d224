package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cronsmith/internal/cron"
	"cronsmith/internal/eventbus"
	"cronsmith/internal/job"
	"cronsmith/internal/node"
	"cronsmith/internal/reconcile"
	"cronsmith/internal/storage"
	logx "cronsmith/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	ident     node.Identity
	backend   job.Backend
	installer cron.Installer

	// recMu guards the reconciler and desired set, both of which are
	// swapped on config reload.
	recMu         sync.Mutex
	rec           *reconcile.Service
	desired       []reconcile.DesiredJob
	applyInterval time.Duration

	// applyNow coalesces apply triggers (initial pass, reloads, ticks).
	applyNow chan struct{}
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	ident, err := node.Detect(cfg.Node.Name, cfg.Node.Platform)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	backend, err := selectBackend(ident)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	log.Info("node identity",
		logx.String("node", ident.Name),
		logx.String("platform", ident.Platform),
		logx.String("backend", backend.String()),
	)

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	installer, err := cron.Open(backend, cron.Config{
		Directory:      cfg.Cron.Directory,
		CrontabCommand: cfg.Cron.CrontabCommand,
	}, log.With(logx.String("comp", "cron")))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	interval, err := parseDurationField("apply.interval", cfg.Apply.Interval)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()

	a := &App{
		cfgPath:       cfgPath,
		cfgm:          cfgm,
		log:           log,
		logs:          logSvc,
		bus:           bus,
		store:         store,
		ident:         ident,
		backend:       backend,
		installer:     installer,
		applyInterval: interval,
		applyNow:      make(chan struct{}, 1),
	}
	a.rec = a.buildReconciler(cfg)
	a.desired = desiredJobs(cfg)
	return a, nil
}

// selectBackend maps the node's platform to a cron backend. Unknown linux
// distributions fall back to the family default rather than failing the whole
// agent.
func selectBackend(ident node.Identity) (job.Backend, error) {
	b, err := job.SelectBackend(ident.Platform)
	if err == nil {
		return b, nil
	}
	var unsup *job.UnsupportedPlatformError
	if errors.As(err, &unsup) && strings.EqualFold(ident.Family, "linux") {
		return job.SelectBackend("linux")
	}
	return 0, err
}

func (a *App) buildReconciler(cfg *Config) *reconcile.Service {
	return reconcile.New(a.ident, a.backend, a.installer, a.store, a.bus, reconcile.Options{
		DryRun:    cfg.Apply.DryRun,
		OpsPerSec: cfg.Apply.OpsPerSec,
	}, a.log.With(logx.String("comp", "reconcile")))
}

func desiredJobs(cfg *Config) []reconcile.DesiredJob {
	out := make([]reconcile.DesiredJob, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		out = append(out, reconcile.DesiredJob{
			Descriptor: jc.Descriptor(),
			Disabled:   jc.Disabled,
		})
	}
	return out
}

// ApplyOnce runs a single reconcile pass. Used by the -once mode.
func (a *App) ApplyOnce(ctx context.Context) (reconcile.Result, error) {
	a.recMu.Lock()
	rec := a.rec
	desired := a.desired
	a.recMu.Unlock()
	return rec.Apply(ctx, desired)
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *Config) error {
		_ = c
		if _, err := parseDurationField("apply.interval", cfg.Apply.Interval); err != nil {
			return err
		}
		if cfg.Apply.OpsPerSec < 0 {
			return fmt.Errorf("apply.ops_per_sec must be >= 0")
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		// Job definitions are validated per-job during apply so one bad job
		// doesn't block the rest; only structural problems reject the reload.
		names := map[string]struct{}{}
		for i, jc := range cfg.Jobs {
			name := strings.TrimSpace(jc.Name)
			if name == "" {
				return fmt.Errorf("jobs[%d]: name required", i)
			}
			if _, dup := names[name]; dup {
				return fmt.Errorf("jobs[%d]: duplicate name %q", i, name)
			}
			names[name] = struct{}{}
		}
		return nil
	})

	// Warn early when the cron daemon isn't running; entries would be
	// installed but never fire.
	probeCtx, cancel := context.WithTimeout(a.sup.Context(), 3*time.Second)
	if active, err := cron.DaemonActive(probeCtx); err != nil {
		a.log.Debug("cron daemon probe failed", logx.Err(err))
	} else if !active {
		a.log.Warn("no active cron daemon detected; installed jobs will not run")
	}
	cancel()

	// Apply loop: one goroutine serializes all reconcile passes.
	a.triggerApply()
	a.sup.GoRestart("apply.loop", func(c context.Context) error {
		var tick <-chan time.Time
		if a.applyInterval > 0 {
			t := time.NewTicker(a.applyInterval)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-c.Done():
				return nil
			case <-a.applyNow:
			case <-tick:
			}
			a.recMu.Lock()
			rec := a.rec
			desired := a.desired
			a.recMu.Unlock()
			if _, err := rec.Apply(c, desired); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("apply pass failed", logx.Err(err))
			}
		}
	})

	// Event log for observability/debug.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs, jobsChanged := SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Debug("config change summary", fields...)
					if len(jobsChanged) > 0 {
						a.log.Debug("job definition changes detected", logx.Any("jobs", jobsChanged))
					}
				} else {
					a.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				for _, s := range sections {
					if s == "storage" || s == "cron" || s == "node" {
						a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
					}
				}

				// apply logging updates
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})

				// swap reconciler options and desired set, then converge
				interval, err := parseDurationField("apply.interval", newCfg.Apply.Interval)
				if err != nil {
					a.log.Warn("invalid apply.interval; keeping previous", logx.Err(err))
				} else if interval != a.applyInterval {
					a.log.Warn("apply.interval changed; restart required for the new tick to take effect",
						logx.Duration("interval", interval))
				}
				a.recMu.Lock()
				a.rec = a.buildReconciler(newCfg)
				a.desired = desiredJobs(newCfg)
				a.recMu.Unlock()
				a.triggerApply()

				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Info("config reloaded", fields...)
				} else {
					a.log.Info("config reloaded (no changes)")
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) triggerApply() {
	select {
	case a.applyNow <- struct{}{}:
	default:
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Run a shutdown step with an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
