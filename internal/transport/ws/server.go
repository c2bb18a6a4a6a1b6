package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/world"
)

const (
	loginTimeout  = 30 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 5 * time.Second
	defaultQueue  = 64
	joinTimeout   = 5 * time.Second
	maxFrameBytes = 64 * 1024
)

type Server struct {
	world     *world.World
	validator *protocol.Validator
	log       *zap.Logger

	upgrader    websocket.Upgrader
	queue       int
	joinTimeout time.Duration

	active  atomic.Int64
	total   atomic.Uint64
	drops   atomic.Uint64
	rejects map[string]*atomic.Uint64
}

// Stats is a snapshot of transport counters.
type Stats struct {
	Active  int64             `json:"active"`
	Total   uint64            `json:"total"`
	Drops   uint64            `json:"drops"`
	Rejects map[string]uint64 `json:"rejects"`
}

func NewServer(w *world.World, v *protocol.Validator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		world:       w,
		validator:   v,
		log:         logger,
		queue:       defaultQueue,
		joinTimeout: joinTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		rejects: map[string]*atomic.Uint64{},
	}
	for _, code := range protocol.KnownCodes() {
		s.rejects[code] = &atomic.Uint64{}
	}
	return s
}

func (s *Server) Stats() Stats {
	st := Stats{
		Active:  s.active.Load(),
		Total:   s.total.Load(),
		Drops:   s.drops.Load(),
		Rejects: make(map[string]uint64, len(s.rejects)),
	}
	for code, n := range s.rejects {
		st.Rejects[code] = n.Load()
	}
	return st
}

func (s *Server) reject(code string, fields ...zap.Field) {
	if n := s.rejects[code]; n != nil {
		n.Add(1)
	}
	s.log.Debug("inbound rejected", append(fields, zap.String("code", code))...)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrameBytes)

		s.total.Add(1)
		s.active.Add(1)
		defer s.active.Add(-1)

		sess, entityID, ok := s.handshake(conn)
		if !ok {
			return
		}
		defer sess.Disconnect()

		// Writer goroutine.
		frameType := websocket.TextMessage
		if sess.Codec() == protocol.CodecMsgpack {
			frameType = websocket.BinaryMessage
		}
		go func() {
			for {
				select {
				case <-sess.Done():
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					_ = conn.Close()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(frameType, b); err != nil {
						sess.Disconnect()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			env, ok := s.decode(mt, msg)
			if !ok {
				continue
			}
			if env.Event == protocol.EventLoginCommit {
				s.reject(protocol.ErrAlreadyLoggedIn, zap.String("session", sess.ID()))
				continue
			}
			select {
			case s.world.Inbox() <- world.Inbound{EntityID: entityID, Event: env.Event, Data: env.Data}:
			default:
				s.reject(protocol.ErrWorldBusy, zap.String("event", env.Event))
			}
		}

		// Cleanup.
		sess.Disconnect()
		select {
		case s.world.Leave() <- entityID:
		case <-time.After(time.Second):
			s.log.Warn("leave dropped", zap.Uint64("entity", entityID))
		}
		s.log.Info("connection closed", zap.String("session", sess.ID()), zap.Uint64("entity", entityID))
	}
}

// handshake waits for login.commit. Anything else before it is logged and
// ignored. The login frame's type fixes the codec for outbound messages.
func (s *Server) handshake(conn *websocket.Conn) (*Session, uint64, bool) {
	deadline := time.Now().Add(loginTimeout)
	for {
		_ = conn.SetReadDeadline(deadline)
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, 0, false
		}
		env, ok := s.decode(mt, msg)
		if !ok {
			continue
		}
		if env.Event != protocol.EventLoginCommit {
			s.reject(protocol.ErrNotLoggedIn, zap.String("event", env.Event))
			continue
		}
		var name string
		if err := json.Unmarshal(env.Data, &name); err != nil {
			s.reject(protocol.ErrProtoBadRequest, zap.Error(err))
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			s.reject(protocol.ErrProtoBadRequest, zap.String("reason", "empty name"))
			continue
		}

		codec := protocol.CodecJSON
		if mt == websocket.BinaryMessage {
			codec = protocol.CodecMsgpack
		}
		sess := newSession(codec, s.queue, s.log, &s.drops)

		resp := make(chan world.JoinResponse, 1)
		select {
		case s.world.Join() <- world.JoinRequest{Name: name, Session: sess, Resp: resp}:
		case <-time.After(s.joinTimeout):
			s.reject(protocol.ErrWorldBusy, zap.String("name", name))
			closeWith(conn, websocket.CloseTryAgainLater, "world busy")
			return nil, 0, false
		}
		var jr world.JoinResponse
		select {
		case jr = <-resp:
		case <-time.After(s.joinTimeout):
			sess.Disconnect()
			go s.releaseLateJoin(name, resp)
			jr.Err = errors.New("join timed out")
		}
		if jr.Err != nil {
			s.reject(protocol.ErrInternal, zap.String("name", name), zap.Error(jr.Err))
			closeWith(conn, websocket.CloseInternalServerErr, "join failed")
			return nil, 0, false
		}
		s.log.Info("player joined",
			zap.String("session", sess.ID()),
			zap.String("name", name),
			zap.Uint64("entity", jr.EntityID),
			zap.String("class", jr.Class),
			zap.Stringer("codec", codec),
		)
		return sess, jr.EntityID, true
	}
}

// releaseLateJoin detaches the entity created by a join reply that arrived
// after the handshake gave up on it.
func (s *Server) releaseLateJoin(name string, resp <-chan world.JoinResponse) {
	var jr world.JoinResponse
	select {
	case jr = <-resp:
	case <-time.After(loginTimeout):
		return
	}
	if jr.Err != nil {
		return
	}
	select {
	case s.world.Leave() <- jr.EntityID:
		s.log.Info("late join detached", zap.String("name", name), zap.Uint64("entity", jr.EntityID))
	case <-time.After(time.Second):
		s.log.Warn("leave dropped", zap.Uint64("entity", jr.EntityID))
	}
}

// decode parses and validates one frame.
func (s *Server) decode(mt int, msg []byte) (protocol.Envelope, bool) {
	var codec protocol.Codec
	switch mt {
	case websocket.TextMessage:
		codec = protocol.CodecJSON
	case websocket.BinaryMessage:
		codec = protocol.CodecMsgpack
	default:
		return protocol.Envelope{}, false
	}
	env, err := codec.Decode(msg)
	if err != nil || env.Event == "" {
		s.reject(protocol.ErrProtoBadFrame, zap.Stringer("codec", codec), zap.Error(err))
		return protocol.Envelope{}, false
	}
	if s.validator != nil {
		if err := s.validator.Validate(env); err != nil {
			s.reject(protocol.ErrProtoBadRequest, zap.String("event", env.Event), zap.Error(err))
			return protocol.Envelope{}, false
		}
		if !s.validator.Known(env.Event) {
			// Counted but still routed; the entity reports it unhandled.
			s.rejects[protocol.ErrUnknownEvent].Add(1)
		}
	}
	return env, true
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}
