package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	logx "cronsmith/pkg/logx"
)

// crondirInstaller manages one file per job under a cron.d directory.
type crondirInstaller struct {
	dir string
	log logx.Logger
}

func (c *crondirInstaller) path(name string) string {
	return filepath.Join(c.dir, sanitizeName(name))
}

func (c *crondirInstaller) Install(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content := renderCronDFile(e)
	path := c.path(e.Name)

	// Skip the write when on-disk content already matches; keeps mtime
	// stable so reapplication is invisible to the cron daemon.
	if cur, err := os.ReadFile(path); err == nil && string(cur) == content {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cron_d: mkdir %s: %w", c.dir, err)
	}

	// Atomic replace: write sibling tmp file, then rename over.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("cron_d: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cron_d: rename %s: %w", path, err)
	}
	c.log.Debug("cron.d entry written", logx.String("path", path))
	return nil
}

func (c *crondirInstaller) Remove(ctx context.Context, name, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := c.path(name)
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cron_d: remove %s: %w", path, err)
	}
	c.log.Debug("cron.d entry removed", logx.String("path", path))
	return nil
}
