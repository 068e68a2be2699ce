// Package notifications pushes workflow milestones to a phone via ntfy.
//
// NewService returns an ntfy-backed Service when notifications.ntfy_topic is
// set and a no-op otherwise. Relay watches session snapshots and turns job
// completions, failures, publishes and microphone loss into notifications, so
// workflow code never talks to the notifier directly.
package notifications
