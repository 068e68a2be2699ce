// Package device wraps the local sound hardware used for voice input.
//
// ExecRecorder captures WAV audio through an external command (arecord by
// default) and exposes the live byte stream so a visualizer can draw levels
// while recording. Capture failures are classified into permission,
// not-found and other causes, each carrying the message shown to the user.
// Monitor watches udev sound events so the panel can report when a
// microphone appears or disappears.
package device
