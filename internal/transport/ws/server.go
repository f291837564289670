// Package ws hosts the browser UI channel: a single websocket viewer
// drives the engine and receives frames, stats and world events.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"isovox.app/internal/protocol"
	"isovox.app/internal/sim/world"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// Hub owns the viewer slot. Inbound messages forward to the engine
// inbox; outbound traffic fans out of Broadcast, fed by the engine
// callbacks and the frame loop. A second concurrent viewer is turned
// away with E_BUSY.
type Hub struct {
	engine  *world.Engine
	welcome protocol.WelcomeMsg
	log     *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu     sync.Mutex
	viewer *session
}

type session struct {
	id  string
	out chan []byte
}

// NewHub wires a hub to the engine. welcome is the handshake template;
// the hub stamps type, protocol version and a session id per viewer.
func NewHub(engine *world.Engine, welcome protocol.WelcomeMsg, logger *log.Logger) *Hub {
	return &Hub{
		engine:  engine,
		welcome: welcome,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// HasViewer reports whether a viewer is currently attached. The frame
// path uses it to skip PNG encodes nobody would see.
func (h *Hub) HasViewer() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewer != nil
}

// Broadcast queues v for the connected viewer, if any. A viewer that
// cannot keep up loses messages rather than stalling the engine;
// frames arrive at tick rate so the picture rights itself.
func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	sess := h.viewer
	h.mu.Unlock()
	if sess == nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := h.handshake(conn)
		if sess == nil {
			return
		}
		defer h.detach(sess)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. Closes the conn on write failure so the
		// reader unblocks without waiting out its deadline.
		go func() {
			ping := time.NewTicker(pingInterval)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))

			var cm protocol.ClientMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if cm.ProtocolVersion != "" && cm.ProtocolVersion != protocol.Version {
				continue
			}
			switch cm.Type {
			case protocol.TypePointer, protocol.TypeInput, protocol.TypeMode,
				protocol.TypeSelect, protocol.TypePlace, protocol.TypeNavigate,
				protocol.TypeCamera:
			default:
				continue
			}
			select {
			case h.engine.Inbox() <- cm:
			default:
				// Inbox full; the engine drains at tick rate and
				// pointer spam is safe to shed.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func (h *Hub) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrVersionMismatch, Message: "server speaks " + protocol.Version})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	sess := &session{
		id:  fmt.Sprintf("V%d", h.nextID.Add(1)),
		out: make(chan []byte, 64),
	}

	h.mu.Lock()
	if h.viewer != nil {
		h.mu.Unlock()
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrBusy, Message: "another viewer is connected"})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"), time.Now().Add(time.Second))
		return nil
	}
	h.viewer = sess
	h.mu.Unlock()

	welcome := h.welcome
	welcome.Type = protocol.TypeWelcome
	welcome.ProtocolVersion = protocol.Version
	welcome.SessionID = sess.id
	if err := writeJSON(conn, welcome); err != nil {
		h.detach(sess)
		return nil
	}

	if h.log != nil {
		h.log.Printf("viewer %s connected (client=%q)", sess.id, hello.Client)
	}
	return sess
}

func (h *Hub) detach(sess *session) {
	h.mu.Lock()
	if h.viewer == sess {
		h.viewer = nil
	}
	h.mu.Unlock()

	// Release any held pointer so mining does not run on after a drop.
	select {
	case h.engine.Inbox() <- protocol.ClientMsg{Type: protocol.TypeInput}:
	default:
	}

	if h.log != nil {
		h.log.Printf("viewer %s disconnected", sess.id)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
