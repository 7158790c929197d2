// Package authflow drives an interactive OAuth 2.0 authorization flow
// through a controlled browser page.
//
// The flow is modelled as an explicit finite-state machine:
//
//	Init -> Navigating -> AwaitingIdentifier -> AwaitingPassword
//	                                         -> AwaitingMFA
//	                                         -> Completed | Failed
//
// The identifier step is automated (the username is typed and submitted);
// password entry and MFA approval are performed by the human operator in the
// visible browser window. The orchestrator never reads or transmits the
// password -- it only observes page state: once the flow reaches a waiting
// state, a polling loop checks once per second for a terminal redirect, an
// MFA challenge, or a provider-reported error, up to a hard per-stage
// deadline.
//
// Every internal failure is normalized into a Result with Success=false and
// a stage-labeled message; Authenticate never panics or returns a raw error,
// and the browser page is released on every exit path.
package authflow
