package protocol

// MaxFrameSize is the largest inbound frame accepted by the transport.
// STATE frames carry a base64 JPEG snapshot, so this is generous.
const MaxFrameSize = 8 << 20

// Frame type names.
const (
	TypeState   = "STATE"
	TypeCommand = "COMMAND"
)
