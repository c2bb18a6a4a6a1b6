package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "account name prefix")
		count    = flag.Int("n", 1, "number of concurrent bots")
		binary   = flag.Bool("msgpack", false, "use binary MessagePack frames")
		interval = flag.Duration("interval", 200*time.Millisecond, "transform send interval")
		speed    = flag.Float64("speed", 8, "walk speed in units per second")
		chatProb = flag.Float64("chat", 0.01, "chance per interval to chat")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	codec := protocol.CodecJSON
	if *binary {
		codec = protocol.CodecMsgpack
	}

	var wg sync.WaitGroup
	for i := 0; i < *count; i++ {
		b := &bot{
			name:     fmt.Sprintf("%s%d", *name, i+1),
			codec:    codec,
			interval: *interval,
			speed:    *speed,
			chatProb: *chatProb,
			rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(i))),
		}
		b.log = logger.With(zap.String("bot", b.name))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.run(ctx, *url); err != nil && ctx.Err() == nil {
				b.log.Warn("bot stopped", zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

type bot struct {
	name     string
	codec    protocol.Codec
	interval time.Duration
	speed    float64
	chatProb float64
	rng      *rand.Rand
	log      *zap.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	id      uint64
	pos     mgl64.Vec3
	heading float64
	health  float64
	nearby  []nearEntity
}

type nearEntity struct {
	id  uint64
	pos mgl64.Vec3
	hp  float64
}

func (b *bot) run(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	b.conn = conn
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := b.send(protocol.EventLoginCommit, b.name); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop() }()

	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-t.C:
			if err := b.act(); err != nil {
				return err
			}
		}
	}
}

func (b *bot) send(event string, data any) error {
	frame, err := b.codec.Encode(event, data)
	if err != nil {
		return err
	}
	mt := websocket.TextMessage
	if b.codec == protocol.CodecMsgpack {
		mt = websocket.BinaryMessage
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteMessage(mt, frame)
}

func (b *bot) readLoop() error {
	for {
		mt, msg, err := b.conn.ReadMessage()
		if err != nil {
			return err
		}
		codec := protocol.CodecJSON
		if mt == websocket.BinaryMessage {
			codec = protocol.CodecMsgpack
		}
		env, err := codec.Decode(msg)
		if err != nil {
			b.log.Debug("bad frame", zap.Error(err))
			continue
		}
		b.handle(env)
	}
}

func (b *bot) handle(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventWorldPlayer:
		var p protocol.PlayerPacket
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		b.mu.Lock()
		b.id = p.ID
		b.pos = mgl64.Vec3(p.Transform.Position)
		b.heading = b.rng.Float64() * 2 * math.Pi
		b.mu.Unlock()
		b.log.Info("logged in",
			zap.Uint64("id", p.ID),
			zap.String("class", p.Desc.Character.Class),
			zap.Float64s("pos", p.Transform.Position[:]),
		)

	case protocol.EventWorldUpdate:
		var ups []protocol.EntityUpdate
		if err := json.Unmarshal(env.Data, &ups); err != nil || len(ups) == 0 {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.health = ups[0].Stats.Health
		for _, ev := range ups[0].Events {
			if ev.Type == protocol.EntityEventAttack && ev.Target == b.id {
				b.log.Info("hit", zap.Uint64("attacker", ev.Attacker), zap.Float64("amount", ev.Amount), zap.Float64("health", b.health))
			}
		}
		b.nearby = b.nearby[:0]
		for _, u := range ups[1:] {
			if u.Transform == nil {
				continue
			}
			b.nearby = append(b.nearby, nearEntity{id: u.ID, pos: mgl64.Vec3(u.Transform.Position), hp: u.Stats.Health})
		}

	case protocol.EventChatMessage:
		var m protocol.ChatMessage
		if err := json.Unmarshal(env.Data, &m); err == nil {
			b.log.Debug("chat", zap.String("from", m.Name), zap.String("text", m.Text))
		}
	}
}

// act sends one transform and occasionally an attack or a chat line.
func (b *bot) act() error {
	b.mu.Lock()
	if b.id == 0 {
		b.mu.Unlock()
		return nil
	}
	dt := b.interval.Seconds()
	state := protocol.StateWalk
	target, ok := closest(b.pos, b.nearby)
	if b.health <= 0 {
		state = protocol.StateDeath
	} else if ok && target.pos.Sub(b.pos).Len() < 10 {
		b.heading = headingTo(b.pos, target.pos)
		state = protocol.StateAttack
	} else {
		b.heading += (b.rng.Float64() - 0.5) * 0.6
		b.pos = step(b.pos, b.heading, b.speed*dt)
	}
	tr := protocol.Transform{State: state, Position: b.pos, Rotation: rotationFor(b.heading)}
	b.mu.Unlock()

	if err := b.send(protocol.EventWorldUpdate, tr); err != nil {
		return err
	}
	if state == protocol.StateAttack {
		if err := b.send(protocol.EventActionAttack, struct{}{}); err != nil {
			return err
		}
	}
	if b.rng.Float64() < b.chatProb {
		return b.send(protocol.EventChatMsg, fmt.Sprintf("%s at %.0f,%.0f", b.name, tr.Position[0], tr.Position[2]))
	}
	return nil
}

func closest(from mgl64.Vec3, ents []nearEntity) (nearEntity, bool) {
	best, bestD := nearEntity{}, math.Inf(1)
	for _, e := range ents {
		if e.hp <= 0 {
			continue
		}
		if d := e.pos.Sub(from).Len(); d < bestD {
			best, bestD = e, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

// step moves dist units along heading in the xz plane. Heading 0 faces +z.
func step(pos mgl64.Vec3, heading, dist float64) mgl64.Vec3 {
	return mgl64.Vec3{pos[0] + math.Sin(heading)*dist, pos[1], pos[2] + math.Cos(heading)*dist}
}

func headingTo(from, to mgl64.Vec3) float64 {
	return math.Atan2(to[0]-from[0], to[2]-from[2])
}

// rotationFor returns the yaw quaternion as [x,y,z,w].
func rotationFor(heading float64) [4]float64 {
	q := mgl64.QuatRotate(heading, mgl64.Vec3{0, 1, 0})
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}
