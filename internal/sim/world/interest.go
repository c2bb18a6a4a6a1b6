package world

import "realmcore/internal/protocol"

// player is the variant for session-driven entities.
type player struct {
	// ids seen in the previous sync; replaced wholesale each sync.
	nearbyCache map[uint64]struct{}
}

func (p *player) update(*Entity, float64) {}

func (p *player) isDead(e *Entity) bool { return e.timeout <= 0 }

// syncClientState sends the receiver a world.update batch: its own record
// first, then one record per entity in view. Descriptions ride along only
// for entities that were not in view on the previous sync.
func (p *player) syncClientState(e *Entity) {
	nearby := e.nearby(e.w.tun.AOIRadius, false)

	batch := make([]protocol.EntityUpdate, 0, len(nearby)+1)
	batch = append(batch, protocol.EntityUpdate{
		ID:     e.id,
		Stats:  protocol.Stats(e.stats),
		Events: e.eventsPacket(),
	})

	seen := make(map[uint64]struct{}, len(nearby))
	for _, n := range nearby {
		tr := n.transformPacket()
		rec := protocol.EntityUpdate{
			ID:        n.id,
			Transform: &tr,
			Stats:     protocol.Stats(n.stats),
			Events:    n.eventsPacket(),
		}
		if _, ok := p.nearbyCache[n.id]; !ok {
			d := n.description()
			rec.Desc = &d
		}
		seen[n.id] = struct{}{}
		batch = append(batch, rec)
	}
	p.nearbyCache = seen

	e.session.Send(protocol.EventWorldUpdate, batch)
}
