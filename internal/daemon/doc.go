// Package daemon composes the long-running services: the workflow manager,
// the cron scheduler, and the HTTP API. It enforces single-instance execution
// with a lock file and is the single owner of the queue store while running.
package daemon
