package protocol

import "encoding/json"

const Version = "1.0"

// Events.
const (
	EventLoginCommit    = "login.commit"
	EventWorldPlayer    = "world.player"
	EventWorldStats     = "world.stats"
	EventWorldUpdate    = "world.update"
	EventChatMsg        = "chat.msg"
	EventChatMessage    = "chat.message"
	EventActionAttack   = "action.attack"
	EventWorldInventory = "world.inventory"
)

// Envelope is the frame carried on every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var m Envelope
	err := json.Unmarshal(b, &m)
	return m, err
}
