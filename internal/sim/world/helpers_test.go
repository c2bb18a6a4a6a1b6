package world

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap/zaptest"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/terrain"
	"realmcore/internal/sim/tuning"
)

type sentMsg struct {
	event   string
	payload any
}

type fakeSession struct {
	mu           sync.Mutex
	sent         []sentMsg
	disconnected bool
}

func (s *fakeSession) Send(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMsg{event: event, payload: payload})
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
}

func (s *fakeSession) all(event string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, m := range s.sent {
		if m.event == event {
			out = append(out, m.payload)
		}
	}
	return out
}

func (s *fakeSession) lastUpdate(t *testing.T) []protocol.EntityUpdate {
	t.Helper()
	ups := s.all(protocol.EventWorldUpdate)
	if len(ups) == 0 {
		t.Fatalf("no world.update sent")
	}
	return ups[len(ups)-1].([]protocol.EntityUpdate)
}

func (s *fakeSession) isDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

type memRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *memRecorder) Record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *memRecorder) kinds() []RecordKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordKind, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Kind
	}
	return out
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testWorld struct {
	*World
	rec *memRecorder
}

func newTestWorld(t *testing.T, mut func(*tuning.Tuning, *catalogs.Catalogs)) testWorld {
	t.Helper()
	tun := tuning.Defaults()
	cats := catalogs.Defaults()
	if mut != nil {
		mut(&tun, cats)
	}
	rec := &memRecorder{}
	w, err := New(Config{
		Tuning:   tun,
		Catalogs: cats,
		Terrain:  terrain.Flat(0),
		Recorder: rec,
		Logger:   zaptest.NewLogger(t),
		Clock:    &fakeClock{now: time.Unix(1700000000, 0)},
		Seed:     42,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return testWorld{World: w, rec: rec}
}

func (w testWorld) spawnPlayer(t *testing.T, name, class string, x, z float64) (*Entity, *fakeSession) {
	t.Helper()
	s := &fakeSession{}
	e, err := w.SpawnPlayer(name, class, vec(x, 0, z), s)
	if err != nil {
		t.Fatalf("SpawnPlayer: %v", err)
	}
	return e, s
}

func vec(x, y, z float64) mgl64.Vec3 { return mgl64.Vec3{x, y, z} }
