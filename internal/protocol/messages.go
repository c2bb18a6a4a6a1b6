package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EntityState is the animation/behavior tag carried in transforms.
type EntityState string

const (
	StateIdle   EntityState = "idle"
	StateWalk   EntityState = "walk"
	StateAttack EntityState = "attack"
	StateDeath  EntityState = "death"
)

func (s EntityState) Valid() bool {
	switch s {
	case StateIdle, StateWalk, StateAttack, StateDeath:
		return true
	}
	return false
}

type Stats struct {
	Health     float64 `json:"health"`
	Strength   float64 `json:"strength"`
	Wisdomness float64 `json:"wisdomness"`
}

// Transform is encoded as [state, [x,y,z], [qx,qy,qz,qw]].
type Transform struct {
	State    EntityState
	Position [3]float64
	Rotation [4]float64
}

func (t Transform) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.State, t.Position, t.Rotation})
}

func (t *Transform) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("transform: want 3 elements, got %d", len(parts))
	}
	var out Transform
	if err := json.Unmarshal(parts[0], &out.State); err != nil {
		return fmt.Errorf("transform state: %w", err)
	}
	if err := json.Unmarshal(parts[1], &out.Position); err != nil {
		return fmt.Errorf("transform position: %w", err)
	}
	if err := json.Unmarshal(parts[2], &out.Rotation); err != nil {
		return fmt.Errorf("transform rotation: %w", err)
	}
	*t = out
	return nil
}

func (t Transform) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode([]any{string(t.State), t.Position[:], t.Rotation[:]})
}

type Account struct {
	Name string `json:"name"`
}

type Character struct {
	Class     string            `json:"class"`
	Inventory map[string]string `json:"inventory"`
}

// Description is the static identity a client needs to instantiate a remote entity.
type Description struct {
	Account   Account   `json:"account"`
	Character Character `json:"character"`
}

// PlayerPacket is the world.player payload sent to an entity's own session at creation.
type PlayerPacket struct {
	ID        uint64      `json:"id"`
	Desc      Description `json:"desc"`
	Transform Transform   `json:"transform"`
}

// StatsPacket is encoded as [id, stats].
type StatsPacket struct {
	ID    uint64
	Stats Stats
}

func (p StatsPacket) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ID, p.Stats})
}

func (p *StatsPacket) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("stats packet: want 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &p.Stats)
}

func (p StatsPacket) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode([]any{p.ID, p.Stats})
}

// InventoryPacket is encoded as [id, {slot: item}].
type InventoryPacket struct {
	ID    uint64
	Items map[string]string
}

func (p InventoryPacket) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = map[string]string{}
	}
	return json.Marshal([]any{p.ID, items})
}

func (p *InventoryPacket) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("inventory packet: want 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &p.ID); err != nil {
		return err
	}
	p.Items = nil
	return json.Unmarshal(parts[1], &p.Items)
}

func (p InventoryPacket) EncodeMsgpack(enc *msgpack.Encoder) error {
	items := p.Items
	if items == nil {
		items = map[string]string{}
	}
	return enc.Encode([]any{p.ID, items})
}

// EntityEvent is a per-tick occurrence attached to the affected entity.
type EntityEvent struct {
	Type     string  `json:"type"`
	Target   uint64  `json:"target"`
	Attacker uint64  `json:"attacker"`
	Amount   float64 `json:"amount"`
}

const EntityEventAttack = "attack"

// EntityUpdate is one record of a world.update batch. The first record of
// every batch describes the receiver and carries no transform.
type EntityUpdate struct {
	ID        uint64        `json:"id"`
	Transform *Transform    `json:"transform,omitempty"`
	Stats     Stats         `json:"stats"`
	Events    []EntityEvent `json:"events"`
	Desc      *Description  `json:"desc,omitempty"`
}

type ChatMessage struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Server bool   `json:"server,omitempty"`
}
