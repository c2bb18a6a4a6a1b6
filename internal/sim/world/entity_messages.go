package world

import (
	"encoding/json"
	"maps"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
)

// OnMessage handles one inbound client message and reports whether the
// event was recognized. Any message, handled or not, resets the inactivity
// timeout.
func (e *Entity) OnMessage(event string, data json.RawMessage) bool {
	e.timeout = e.idleTimeout

	switch event {
	case protocol.EventWorldUpdate:
		var t protocol.Transform
		if err := json.Unmarshal(data, &t); err != nil {
			e.w.log.Debug("bad transform", zap.Uint64("id", e.id), zap.Error(err))
			return false
		}
		e.applyTransform(t)
		return true
	case protocol.EventChatMsg:
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return false
		}
		e.onChat(text)
		return true
	case protocol.EventActionAttack:
		e.StartAttack()
		return true
	case protocol.EventWorldInventory:
		var p protocol.InventoryPacket
		if err := json.Unmarshal(data, &p); err != nil {
			return false
		}
		e.onInventoryChanged(p.Items)
		return true
	}
	return false
}

// applyTransform accepts a client-reported transform as-is. A dead entity
// keeps its death state whatever the client claims, and only damage can
// put a live entity into it.
func (e *Entity) applyTransform(t protocol.Transform) {
	if t.State.Valid() && (t.State != protocol.StateDeath || e.stats.Health <= 0) {
		e.SetState(t.State)
	}
	if e.stats.Health <= 0 {
		e.state = protocol.StateDeath
	}
	e.pos = mgl64.Vec3{t.Position[0], t.Position[1], t.Position[2]}
	e.rot = mgl64.Quat{W: t.Rotation[3], V: mgl64.Vec3{t.Rotation[0], t.Rotation[1], t.Rotation[2]}}
	e.updateHandle()
}

func (e *Entity) onChat(text string) {
	e.w.log.Info("chat", zap.String("name", e.name), zap.String("text", text))
	r := e.record(RecordChat)
	r.Text = text
	e.w.rec.Record(r)
	e.broadcastChat(protocol.ChatMessage{Name: e.name, Text: text})
}

// broadcastChat sends msg to every other entity within chat range.
func (e *Entity) broadcastChat(msg protocol.ChatMessage) {
	for _, n := range e.nearby(e.w.tun.ChatRadius, false) {
		n.session.Send(protocol.EventChatMessage, msg)
	}
}

func (e *Entity) onInventoryChanged(items map[string]string) {
	if items == nil {
		items = map[string]string{}
	}
	e.inventory = items
	for _, n := range e.nearby(e.w.tun.InventoryRadius, true) {
		n.session.Send(protocol.EventWorldInventory, protocol.InventoryPacket{ID: e.id, Items: maps.Clone(items)})
	}
}
