// Package services defines shared utilities consumed by the gateway, the job
// poller, and the workflow drivers.
//
// Key responsibilities:
//   - Context helpers that stamp job kinds, agent stages, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (start rejected, transient poll, job failed, publish, device) so the
//     workflow layer can decide what to surface and what to swallow.
//   - Remediation hints that travel with an error to the user.
package services
