package reconcile

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"cronsmith/internal/cron"
	"cronsmith/internal/job"
	"cronsmith/internal/node"
	"cronsmith/internal/storage"
	logx "cronsmith/pkg/logx"
)

type fakeInstaller struct {
	mu       sync.Mutex
	installs []cron.Entry
	removes  []string

	failInstall error
}

func (f *fakeInstaller) Install(ctx context.Context, e cron.Entry) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInstall != nil {
		return f.failInstall
	}
	f.installs = append(f.installs, e)
	return nil
}

func (f *fakeInstaller) Remove(ctx context.Context, name, user string) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, name)
	return nil
}

func testIdentity() node.Identity {
	return node.Identity{Name: "node-01", Platform: "ubuntu", Family: "linux"}
}

func testStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "state"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func desired(t *testing.T, names ...string) []DesiredJob {
	t.Helper()
	logDir := t.TempDir()
	out := make([]DesiredJob, 0, len(names))
	for _, n := range names {
		out = append(out, DesiredJob{Descriptor: job.Descriptor{Name: n, LogDirectory: logDir}})
	}
	return out
}

func TestApplyInstallsNewJob(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	st := testStore(t)
	svc := New(testIdentity(), job.CronDirectory, fi, st, nil, Options{}, logx.Nop())

	res, err := svc.Apply(context.Background(), desired(t, "chef-client"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Installed != 1 || res.Removed != 0 || res.Rejected != 0 {
		t.Fatalf("Result = %+v, want 1 install", res)
	}
	if len(fi.installs) != 1 {
		t.Fatalf("installer calls = %d, want 1", len(fi.installs))
	}
	e := fi.installs[0]
	if e.User != "root" {
		t.Fatalf("entry user = %q, want root (default)", e.User)
	}
	if e.Schedule.String() != "0,30 * * * *" {
		t.Fatalf("entry schedule = %q", e.Schedule.String())
	}

	rec, ok, err := st.GetJob(context.Background(), "chef-client")
	if err != nil || !ok {
		t.Fatalf("GetJob after apply: ok=%v err=%v", ok, err)
	}
	if rec.Command != e.Command {
		t.Fatalf("stored command = %q, want %q", rec.Command, e.Command)
	}
}

func TestApplySecondPassUnchanged(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	st := testStore(t)
	svc := New(testIdentity(), job.CronDirectory, fi, st, nil, Options{}, logx.Nop())
	ctx := context.Background()

	jobs := desired(t, "chef-client")
	if _, err := svc.Apply(ctx, jobs); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	res, err := svc.Apply(ctx, jobs)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if res.Installed != 0 || res.Unchanged != 1 {
		t.Fatalf("second pass = %+v, want unchanged", res)
	}
	// The installer still runs on unchanged jobs to heal drift.
	if len(fi.installs) != 2 {
		t.Fatalf("installer calls = %d, want 2", len(fi.installs))
	}
}

func TestApplyDetectsEdit(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	st := testStore(t)
	svc := New(testIdentity(), job.CronDirectory, fi, st, nil, Options{}, logx.Nop())
	ctx := context.Background()

	jobs := desired(t, "chef-client")
	if _, err := svc.Apply(ctx, jobs); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	edited := jobs
	edited[0].Descriptor.Minute = "15"
	res, err := svc.Apply(ctx, edited)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if res.Installed != 1 || res.Unchanged != 0 {
		t.Fatalf("edited pass = %+v, want 1 install", res)
	}
}

func TestApplyRemovesOrphans(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	st := testStore(t)
	svc := New(testIdentity(), job.CronDirectory, fi, st, nil, Options{}, logx.Nop())
	ctx := context.Background()

	jobs := desired(t, "a", "b")
	if _, err := svc.Apply(ctx, jobs); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	res, err := svc.Apply(ctx, jobs[:1])
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if res.Removed != 1 {
		t.Fatalf("Result = %+v, want 1 removal", res)
	}
	if len(fi.removes) != 1 || fi.removes[0] != "b" {
		t.Fatalf("removes = %v, want [b]", fi.removes)
	}
	if _, ok, _ := st.GetJob(ctx, "b"); ok {
		t.Fatal("orphan b still recorded after removal")
	}
}

func TestApplyDisabledJobRemoved(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	svc := New(testIdentity(), job.CronDirectory, fi, nil, nil, Options{}, logx.Nop())

	res, err := svc.Apply(context.Background(), []DesiredJob{
		{Descriptor: job.Descriptor{Name: "chef-client"}, Disabled: true},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Removed != 1 || res.Installed != 0 {
		t.Fatalf("Result = %+v, want 1 removal", res)
	}
	if len(fi.removes) != 1 {
		t.Fatalf("removes = %v", fi.removes)
	}
}

func TestApplyRejectsInvalidJob(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	svc := New(testIdentity(), job.CronDirectory, fi, nil, nil, Options{}, logx.Nop())

	logDir := t.TempDir()
	res, err := svc.Apply(context.Background(), []DesiredJob{
		{Descriptor: job.Descriptor{Name: "bad", Minute: "99", LogDirectory: logDir}},
		{Descriptor: job.Descriptor{Name: "good", LogDirectory: logDir}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Rejected != 1 || res.Installed != 1 {
		t.Fatalf("Result = %+v, want 1 rejected 1 installed", res)
	}
	if len(fi.installs) != 1 || fi.installs[0].Name != "good" {
		t.Fatalf("installs = %v", fi.installs)
	}
}

func TestApplyDuplicateNameRejected(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	svc := New(testIdentity(), job.CronDirectory, fi, nil, nil, Options{}, logx.Nop())

	res, err := svc.Apply(context.Background(), desired(t, "dup", "dup"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Installed != 1 || res.Rejected != 1 {
		t.Fatalf("Result = %+v, want first wins", res)
	}
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	st := testStore(t)
	svc := New(testIdentity(), job.CronDirectory, fi, st, nil, Options{DryRun: true}, logx.Nop())

	res, err := svc.Apply(context.Background(), desired(t, "chef-client"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Installed != 1 {
		t.Fatalf("Result = %+v, want planned install", res)
	}
	if len(fi.installs) != 0 {
		t.Fatal("dry run called the installer")
	}
	if _, ok, _ := st.GetJob(context.Background(), "chef-client"); ok {
		t.Fatal("dry run wrote to the store")
	}
}

func TestApplyStableCommandAcrossPasses(t *testing.T) {
	t.Parallel()
	fi := &fakeInstaller{}
	svc := New(testIdentity(), job.CronDirectory, fi, nil, nil, Options{}, logx.Nop())
	ctx := context.Background()

	jobs := desired(t, "chef-client")
	if _, err := svc.Apply(ctx, jobs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := svc.Apply(ctx, jobs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(fi.installs) != 2 {
		t.Fatalf("installer calls = %d, want 2", len(fi.installs))
	}
	if fi.installs[0].Command != fi.installs[1].Command {
		t.Fatalf("command drifted between passes:\n%s\n%s", fi.installs[0].Command, fi.installs[1].Command)
	}
}
