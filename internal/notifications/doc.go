// Package notifications delivers push notifications for workflow milestones
// via ntfy. When no topic is configured a noop implementation is used, so
// callers never need to guard their notification calls.
package notifications
