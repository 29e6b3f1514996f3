// Package services defines shared helpers consumed by the panel stages and
// the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so configuration and
//     wiring failures carry a consistent classification.
package services
