// Package stage implements the three operator-facing steps of the job
// submission workflow: Upload, Run Now, and Schedule.
//
// Every stage is a small Idle -> InFlight -> Settled machine. Begin performs
// the local precondition checks and the transition to InFlight synchronously,
// returning a Submission that performs the single backend round trip. Local
// rejections settle immediately without touching the network, and the in-flight
// half always settles through a deferred call so the busy flag clears on every
// exit path.
//
// Upload publishes the backend-assigned artifact reference through a sink;
// Run and Schedule read it through a ReferenceSource immediately before each
// submission. Neither ever submits without one.
package stage
