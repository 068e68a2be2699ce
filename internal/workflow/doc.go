// Package workflow holds the client-side session state and the drivers that
// move it forward.
//
// Store is the single source of truth: conversation transcript, active mode,
// one WorkflowStep per mode, the status of every job kind, generated content,
// gallery and pending alerts. Every mutation happens under one lock and is
// followed by an immutable Snapshot delivered to subscribers.
//
// Drivers (single image, carousel, agent, video) start backend jobs and attach
// pollers keyed by job kind, so progress keeps accruing whichever view is
// showing. ModeController gates navigation: while the agent runs, mode
// switches are refused.
package workflow
