// Package gateway is the HTTP client for the external content backend.
//
// Each operation maps to one backend endpoint and carries its own timeout
// class: status polls fail fast so a stuck request only costs one tick, while
// job-start calls may wait minutes on model inference. Failures are tagged
// with services markers (ErrTimeout, ErrTransient, ErrValidation, ErrNotFound)
// and keep the backend's own message reachable through BackendMessage.
package gateway
