package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Handshake.
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"

	// Client -> server.
	TypePointer  = "POINTER"
	TypeInput    = "INPUT"
	TypeMode     = "MODE"
	TypeSelect   = "SELECT"
	TypePlace    = "PLACE"
	TypeNavigate = "NAVIGATE"
	TypeCamera   = "CAMERA"

	// Server -> client.
	TypeFrame       = "FRAME"
	TypeStats       = "STATS"
	TypeTime        = "TIME"
	TypeInventory   = "INVENTORY"
	TypePlaced      = "PLACED"
	TypeExploration = "EXPLORATION"
	TypeError       = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
