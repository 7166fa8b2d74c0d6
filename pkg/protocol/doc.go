// Package protocol implements the JSON text-frame protocol spoken between
// lockwatch and the monitored PC.
//
// Every frame is a JSON object with a string "type" and an object "payload".
//
// # Inbound
//
// The PC pushes STATE frames:
//
//	{"type":"STATE","payload":{"threat":true,"image":"<base64>"}}
//
// "threat" is required. "image" is optional; null means no image.
//
// Decode is total: any frame that is not a well-formed STATE message decodes
// to an Event of KindUnrecognized, and an image that is present but cannot be
// decoded is reported as ImageInvalid instead of failing the frame.
//
// # Outbound
//
// Operator commands are sent as COMMAND frames:
//
//	{"type":"COMMAND","payload":{"action":"LOCK"}}
//
// # Limits
//
// MaxFrameSize bounds a single inbound frame; the transport enforces it.
package protocol
