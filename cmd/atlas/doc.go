// Package main hosts the atlas CLI entrypoint and command graph.
//
// The Cobra command tree runs the panel process (`atlas serve`) and drives a
// running panel over its HTTP API: mode switches, chat, voice, studio and
// video jobs, publishing, Instagram settings and log tailing. Configuration
// resolution and the panel client live in commandContext so subcommands only
// deal with presentation.
package main
