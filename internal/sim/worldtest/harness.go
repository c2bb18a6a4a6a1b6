package worldtest

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap/zaptest"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/terrain"
	"realmcore/internal/sim/tuning"
	world "realmcore/internal/sim/world"
)

// Harness drives a world through its exported API only. Sessions push every
// outbound payload through a real codec, so tests see what a client would.
type Harness struct {
	T *testing.T
	W *world.World

	sessions map[uint64]*Session
}

func NewHarness(t *testing.T, mut func(*tuning.Tuning, *catalogs.Catalogs)) *Harness {
	t.Helper()
	tun := tuning.Defaults()
	cats := catalogs.Defaults()
	if mut != nil {
		mut(&tun, cats)
	}
	w, err := world.New(world.Config{
		Tuning:   tun,
		Catalogs: cats,
		Terrain:  terrain.Flat(0),
		Logger:   zaptest.NewLogger(t),
		Seed:     7,
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, W: w, sessions: map[uint64]*Session{}}
}

// Session records decoded frames for one connected player.
type Session struct {
	ID    uint64
	codec protocol.Codec

	mu           sync.Mutex
	frames       []protocol.Envelope
	disconnected bool
	err          error
}

func (s *Session) Send(event string, payload any) {
	b, err := s.codec.Encode(event, payload)
	if err == nil {
		var env protocol.Envelope
		env, err = s.codec.Decode(b)
		if err == nil {
			s.mu.Lock()
			s.frames = append(s.frames, env)
			s.mu.Unlock()
			return
		}
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
}

func (s *Session) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *Session) Frames(event string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []json.RawMessage
	for _, f := range s.frames {
		if f.Event == event {
			out = append(out, f.Data)
		}
	}
	return out
}

// Spawn adds a player with a JSON session.
func (h *Harness) Spawn(name, class string, x, z float64) *Session {
	h.T.Helper()
	return h.SpawnWith(protocol.CodecJSON, name, class, x, z)
}

func (h *Harness) SpawnWith(codec protocol.Codec, name, class string, x, z float64) *Session {
	h.T.Helper()
	s := &Session{codec: codec}
	e, err := h.W.SpawnPlayer(name, class, mgl64.Vec3{x, 0, z}, s)
	if err != nil {
		h.T.Fatalf("SpawnPlayer(%s): %v", name, err)
	}
	s.ID = e.ID()
	h.sessions[s.ID] = s
	return s
}

// Send delivers event/data from a player as the transport would.
func (h *Harness) Send(s *Session, event string, data any) bool {
	h.T.Helper()
	b, err := json.Marshal(data)
	if err != nil {
		h.T.Fatalf("marshal %s: %v", event, err)
	}
	return h.W.Dispatch(s.ID, event, b)
}

func (h *Harness) Step(dt float64) { h.W.Update(dt) }

// StepFor advances total seconds in dt increments.
func (h *Harness) StepFor(total, dt float64) {
	for elapsed := 0.0; elapsed < total; elapsed += dt {
		h.W.Update(dt)
	}
}

// LastUpdate returns the newest world.update batch s received.
func (h *Harness) LastUpdate(s *Session) []protocol.EntityUpdate {
	h.T.Helper()
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		h.T.Fatalf("session %d codec: %v", s.ID, err)
	}
	frames := s.Frames(protocol.EventWorldUpdate)
	if len(frames) == 0 {
		h.T.Fatalf("session %d: no world.update", s.ID)
	}
	var ups []protocol.EntityUpdate
	if err := json.Unmarshal(frames[len(frames)-1], &ups); err != nil {
		h.T.Fatalf("session %d: decode world.update: %v", s.ID, err)
	}
	return ups
}

func (h *Harness) Chats(s *Session) []protocol.ChatMessage {
	h.T.Helper()
	var out []protocol.ChatMessage
	for _, raw := range s.Frames(protocol.EventChatMessage) {
		var m protocol.ChatMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			h.T.Fatalf("decode chat: %v", err)
		}
		out = append(out, m)
	}
	return out
}

// Find returns the record for id in a batch, or nil.
func Find(ups []protocol.EntityUpdate, id uint64) *protocol.EntityUpdate {
	for i := range ups {
		if ups[i].ID == id {
			return &ups[i]
		}
	}
	return nil
}
