// Package prefs persists panel preferences in a small SQLite database under
// the state directory. The only preference today is the colour theme.
package prefs
