package world

import "time"

type RecordKind string

const (
	RecordLogin      RecordKind = "login"
	RecordDisconnect RecordKind = "disconnect"
	RecordDespawn    RecordKind = "despawn"
	RecordSpawn      RecordKind = "spawn"
	RecordChat       RecordKind = "chat"
	RecordDamage     RecordKind = "damage"
	RecordDeath      RecordKind = "death"
)

// Record is one gameplay fact emitted by the world loop. For damage and death
// records EntityID is the victim and OtherID the attacker.
type Record struct {
	Kind      RecordKind `json:"kind"`
	Time      time.Time  `json:"time"`
	EntityID  uint64     `json:"entity_id"`
	Name      string     `json:"name,omitempty"`
	Class     string     `json:"class,omitempty"`
	OtherID   uint64     `json:"other_id,omitempty"`
	OtherName string     `json:"other_name,omitempty"`
	Amount    float64    `json:"amount,omitempty"`
	Text      string     `json:"text,omitempty"`
	Pos       [3]float64 `json:"pos"`
}

// Recorder receives records on the world goroutine and must not block.
// Implemented in internal/persistence/*.
type Recorder interface {
	Record(r Record)
}

// Recorders fans a record out to several sinks.
type Recorders []Recorder

func (rs Recorders) Record(r Record) {
	for _, x := range rs {
		if x != nil {
			x.Record(r)
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(Record) {}
