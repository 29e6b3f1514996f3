// Package workflow coordinates the Upload, Run Now, and Schedule stages.
//
// The Coordinator owns the single shared value of the workflow, the artifact
// reference returned by the last successful upload, and hands it to the Run
// and Schedule stages through the stage.ReferenceSource interface. It runs one
// backend health probe per lifetime, dispatches operator actions to the
// stages (synchronously for the CLI, as tracked goroutines for the browser
// panel), and observes every settle for logging and ntfy notifications.
//
// The Coordinator performs no validation of its own; every precondition lives
// in the stage that owns it.
package workflow
