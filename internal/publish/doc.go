// Package publish delivers finished compilations to their configured
// destinations. Targets sit behind a small contract so platform-specific
// uploaders can be added without touching the workflow; the built-in archive
// target copies the final video into a local directory. PublishAll fans out
// to every active target and reports per-target outcomes, so one failing
// destination never blocks the others.
package publish
