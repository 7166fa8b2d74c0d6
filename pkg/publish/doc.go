// Package publish delivers connection status, image updates and the
// terminal connection-failure notice from the engine to whatever presents
// them.
//
// Delivery is best effort and most-recent-wins: every subscriber owns a
// channel holding at most one value, publishing never blocks, and a value
// the subscriber has not picked up yet is replaced by the newer one. There is
// no replay; a subscriber attaching late only sees later events.
package publish
