// Package workflow advances queue items through the scrape, render, and
// publish stages.
//
// The Manager polls the queue for the next actionable item, reclaims runs
// whose heartbeats went stale, and hands each item to the stage registered
// for its status. Stage execution itself is shared with the one-shot CLI
// path; the manager adds the polling loop, the heartbeat updater, and the
// aggregated status the daemon exposes over its API.
//
// Add new lifecycle stages by extending StageSet, adding the queue status
// enums, and registering the transition in ConfigureStages; this package is
// the authoritative home for that coordination logic.
package workflow
