// Package preflight provides readiness checks for the external tools and
// filesystem paths a render run depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and refuses to start when a required
//     check fails, so a misconfigured box never half-processes a queue.
//   - The CLI "clipforge status" command shows the same results so a failing
//     setup can be diagnosed without reading logs.
package preflight
