// Package panel serves the browser control panel.
//
// A single server-rendered page shows the API Online/Offline badge and the
// three numbered panels (Upload CSV, Run Now, Schedule one-time). Form posts
// dispatch to the workflow coordinator and redirect back to the page, which
// refreshes itself every second while any stage is in flight. The server runs
// under a flock so only one panel owns a state directory at a time.
package panel
