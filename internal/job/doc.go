// Package job is the pure core of cronsmith: a periodic-job descriptor that
// compiles into a cron schedule tuple and an idempotent shell command line.
//
// Nothing in this package performs I/O. Installation of the compiled entry is
// owned by internal/cron; node identity (the splay seed source) by
// internal/node.
package job
