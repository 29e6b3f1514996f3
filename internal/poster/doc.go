// Package poster talks to the Crazy Poster automation backend.
//
// The Client performs exactly one round trip per call against the four
// backend endpoints (health, upload-csv, run-now, schedule-once). Every
// failure is normalized into a *RequestFailedError whose message is the fixed
// operator-facing text for that endpoint; the HTTP status and underlying cause
// stay attached for logging only. There are no retries, no client timeout, and
// no idempotency keys.
package poster
