// Package cron installs compiled job entries into the system cron facility.
//
// Two backends exist, mirroring what platforms actually offer: a cron.d
// directory backend (one file per job) and a legacy per-user crontab backend
// (managed marker block via crontab(1)). Backend choice is made by
// job.SelectBackend; this package only executes it.
package cron
