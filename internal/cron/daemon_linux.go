//go:build linux

package cron

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// cronUnits are the unit names the usual distro cron implementations ship.
var cronUnits = []string{"cron.service", "crond.service", "cronie.service"}

// DaemonActive reports whether a cron daemon unit is active according to
// systemd. Errors (no systemd, no D-Bus access) are returned so the caller
// can decide to warn rather than fail.
func DaemonActive(ctx context.Context) (bool, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, cronUnits)
	if err != nil {
		return false, err
	}
	for _, u := range units {
		if u.ActiveState == "active" {
			return true, nil
		}
	}
	return false, nil
}
