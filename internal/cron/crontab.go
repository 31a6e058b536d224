package cron

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	logx "cronsmith/pkg/logx"
)

// crontabInstaller manages a marker-delimited block inside the per-user
// crontab, read and written through crontab(1).
type crontabInstaller struct {
	bin string
	log logx.Logger
}

func (c *crontabInstaller) Install(ctx context.Context, e Entry) error {
	cur, err := c.read(ctx, e.User)
	if err != nil {
		return err
	}
	next := replaceBlock(cur, e.Name, renderCrontabBlock(e))
	if next == cur {
		return nil
	}
	if err := c.write(ctx, e.User, next); err != nil {
		return err
	}
	c.log.Debug("crontab block written", logx.String("user", e.User), logx.String("job", e.Name))
	return nil
}

func (c *crontabInstaller) Remove(ctx context.Context, name, user string) error {
	cur, err := c.read(ctx, user)
	if err != nil {
		return err
	}
	next := removeBlock(cur, name)
	if next == cur {
		return nil
	}
	if err := c.write(ctx, user, next); err != nil {
		return err
	}
	c.log.Debug("crontab block removed", logx.String("user", user), logx.String("job", name))
	return nil
}

func (c *crontabInstaller) read(ctx context.Context, user string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, "-u", user, "-l")
	out, err := cmd.CombinedOutput()
	if err != nil {
		// crontab -l exits non-zero when the user has no crontab yet;
		// that's an empty starting point, not a failure.
		if strings.Contains(strings.ToLower(string(out)), "no crontab") {
			return "", nil
		}
		return "", fmt.Errorf("crontab: read for %s: %w: %s", user, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (c *crontabInstaller) write(ctx context.Context, user, content string) error {
	cmd := exec.CommandContext(ctx, c.bin, "-u", user, "-")
	cmd.Stdin = strings.NewReader(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("crontab: write for %s: %w: %s", user, err, strings.TrimSpace(string(out)))
	}
	return nil
}
