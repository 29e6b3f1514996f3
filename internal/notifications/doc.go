// Package notifications delivers job submission events via ntfy.
//
// The ntfy implementation publishes to the topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Per-event toggles
// let operators silence run or schedule confirmations independently.
package notifications
