// Package panelclient is the HTTP client the atlas CLI uses to drive a
// running panel.
package panelclient
