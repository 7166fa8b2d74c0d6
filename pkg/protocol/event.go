package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant of an inbound Event.
type Kind uint8

const (
	// KindUnrecognized is any frame that is not a decodable STATE message.
	KindUnrecognized Kind = iota

	// KindStateUpdate is a STATE message.
	KindStateUpdate
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindStateUpdate:
		return "state"
	default:
		return "unrecognized"
	}
}

// ImageStatus describes the image field of a STATE message.
type ImageStatus uint8

const (
	// ImageAbsent means the field was missing or null.
	ImageAbsent ImageStatus = iota

	// ImagePresent means the field decoded to image bytes.
	ImagePresent

	// ImageInvalid means the field was present but did not decode.
	ImageInvalid
)

// String returns the string representation of the status.
func (s ImageStatus) String() string {
	switch s {
	case ImagePresent:
		return "present"
	case ImageInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Image is the decoded image field of a STATE message.
type Image struct {
	Status ImageStatus
	Data   []byte // set only when Status == ImagePresent
}

// Event is a decoded inbound frame.
type Event struct {
	Kind Kind

	// Threat and Image are meaningful only for KindStateUpdate.
	Threat bool
	Image  Image
}

// String returns a short description for logs.
func (e Event) String() string {
	if e.Kind != KindStateUpdate {
		return "unrecognized"
	}
	return fmt.Sprintf("state(threat=%t image=%s)", e.Threat, e.Image.Status)
}

var unrecognized = Event{Kind: KindUnrecognized}

type envelope struct {
	Type    *string         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type statePayload struct {
	Threat *bool           `json:"threat"`
	Image  json.RawMessage `json:"image"`
}

var jsonNull = []byte("null")

// Decode parses one inbound text frame. It never fails: anything other than
// a well-formed STATE message yields an Event of KindUnrecognized.
func Decode(raw []byte) Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return unrecognized
	}
	if env.Type == nil || *env.Type != TypeState {
		return unrecognized
	}
	if isNull(env.Payload) {
		return unrecognized
	}

	var p statePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return unrecognized
	}
	if p.Threat == nil {
		return unrecognized
	}

	return Event{
		Kind:   KindStateUpdate,
		Threat: *p.Threat,
		Image:  decodeImage(p.Image),
	}
}

func decodeImage(field json.RawMessage) Image {
	if isNull(field) {
		return Image{Status: ImageAbsent}
	}

	var encoded string
	if err := json.Unmarshal(field, &encoded); err != nil {
		return Image{Status: ImageInvalid}
	}

	data, ok := decodeBase64(encoded)
	if !ok || len(data) == 0 {
		return Image{Status: ImageInvalid}
	}
	return Image{Status: ImagePresent, Data: data}
}

// decodeBase64 accepts standard-alphabet base64 with or without padding and
// with line breaks, as produced by camera-side encoders.
func decodeBase64(s string) ([]byte, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t', ' ':
			return -1
		}
		return r
	}, s)

	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, true
	}
	if data, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return data, true
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}
