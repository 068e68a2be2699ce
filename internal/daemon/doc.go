// Package daemon runs the long-lived atlas panel process.
//
// It wires configuration, the preference store, the backend gateway, one
// workflow session, the panel server and the microphone monitor into a single
// lifecycle. A flock on the state directory keeps a second instance from
// starting against the same state.
package daemon
