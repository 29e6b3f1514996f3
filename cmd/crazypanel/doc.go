// Package main hosts the crazypanel CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the same workflow coordinator as the
// browser panel: health probes, CSV uploads, immediate runs, one-time
// schedules, the combined submit flow, and the panel server itself. It
// centralizes configuration resolution and logger setup so subcommands only
// translate flags into stage inputs and render the settled snapshot.
package main
