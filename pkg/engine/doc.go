// Package engine owns the connection to the monitored PC.
//
// An Engine dials one Endpoint, keeps the connection alive according to its
// Policy, turns inbound STATE frames into status and image notifications on
// a publish.Publisher, and writes operator commands while connected.
//
// # State machine
//
//	Disconnected --Connect--> Connecting --open ok--> Connected
//	Connecting/Connected --failure--> Retrying --delay--> Connecting   (RetryForever)
//	Connecting/Connected --failure--> Failed                           (GiveUpAfterFirstFailure)
//	any --Close--> Disconnected (terminal for the instance)
//
// Connect is single-flight: while an attempt is in progress, a connection is
// open or a retry is pending, further calls do nothing.
//
// # Concurrency
//
// All state lives on one goroutine. Dial results, inbound frames, read
// errors, retry timer expiries and caller requests are messages on a single
// unbuffered mailbox, handled one at a time. Close must be called to release
// that goroutine.
package engine
