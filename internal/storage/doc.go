package storage

// Package storage records what cronsmith has installed, so reapplying
// configuration can tell "unchanged" from "needs a rewrite", and keeps an
// audit trail of install/remove actions.
//
// Drivers:
//   - file: dependency-free (jsonl audit + json snapshot/journal)
//   - sqlite: optional, behind the `sqlite` build tag
