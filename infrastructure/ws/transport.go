// Package ws adapts the pub/sub collaborator to a websocket connection.
// The session core only sees topics and frames; dial, resubscribe and
// retry mechanics stay on this side of the boundary.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-chat/contract"
)

const (
	handshakeTimeout = 10 * time.Second
	redialDelay      = 3 * time.Second
	maxRedials       = 5
)

// envelope is the wire shape shared with the server: a command, a
// destination topic, and an opaque body.
type envelope struct {
	Command     string          `json:"command"`
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body,omitempty"`
}

const (
	commandSubscribe = "SUBSCRIBE"
	commandSend      = "SEND"
	commandMessage   = "MESSAGE"
)

// Transport is a reconnecting websocket client. Writes are serialized
// by a mutex (the connection allows one concurrent writer); received
// frames are delivered on a single channel that closes for good when
// the transport gives up or is closed.
type Transport struct {
	log    *slog.Logger
	server string

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   []string
	closed bool

	frames chan contract.Frame
}

func NewTransport(log *slog.Logger, server string, frameBuffer int) *Transport {
	return &Transport{
		log:    log,
		server: server,
		frames: make(chan contract.Frame, frameBuffer),
	}
}

// Connect dials the server and starts the receive loop. The frames
// channel stays open across transparent redials.
func (t *Transport) Connect(ctx context.Context) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.receiveLoop(ctx)
	return nil
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	addr := strings.TrimSpace(t.server)
	if strings.HasPrefix(addr, "https://") {
		addr = "wss://" + addr[len("https://"):]
	} else if strings.HasPrefix(addr, "http://") {
		addr = "ws://" + addr[len("http://"):]
	} else if !strings.HasPrefix(addr, "ws") {
		addr = "ws://" + addr
	}
	if !strings.HasSuffix(addr, "/ws") {
		addr = strings.TrimSuffix(addr, "/") + "/ws"
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return conn, nil
}

// Subscribe registers interest in a topic and remembers it so redials
// can restore the subscription set.
func (t *Transport) Subscribe(topic string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, topic)
	return t.write(envelope{Command: commandSubscribe, Destination: topic})
}

// Send publishes an application payload to a destination.
func (t *Transport) Send(destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", destination, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.write(envelope{Command: commandSend, Destination: destination, Body: body})
}

// write requires t.mu to be held.
func (t *Transport) write(env envelope) error {
	if t.conn == nil {
		return fmt.Errorf("transport not connected")
	}
	return t.conn.WriteJSON(env)
}

func (t *Transport) Frames() <-chan contract.Frame { return t.frames }

// Close tears the connection down and closes the frames channel.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var err error
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	close(t.frames)
	return err
}

// receiveLoop reads frames until the connection breaks, then redials a
// bounded number of times. Exhausting the redials closes the frames
// channel, which the session core treats as a transport fault.
func (t *Transport) receiveLoop(ctx context.Context) {
	for {
		t.mu.Lock()
		conn := t.conn
		closed := t.closed
		t.mu.Unlock()
		if closed || conn == nil {
			return
		}

		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || !t.redial(ctx) {
				t.giveUp()
				return
			}
			continue
		}
		if env.Command != commandMessage {
			t.log.Debug("Ignoring non-message envelope", "command", env.Command)
			continue
		}
		select {
		case t.frames <- contract.Frame{Topic: env.Destination, Body: env.Body}:
		case <-ctx.Done():
			t.giveUp()
			return
		}
	}
}

// redial reconnects and restores the subscription set. Returns false
// once the retry budget is spent.
func (t *Transport) redial(ctx context.Context) bool {
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(redialDelay):
		}

		conn, err := t.dial(ctx)
		if err != nil {
			t.log.Warn("Redial failed", "attempt", attempt, "error", err)
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			_ = conn.Close()
			return false
		}
		t.conn = conn
		resubErr := error(nil)
		for _, topic := range t.subs {
			if err := t.write(envelope{Command: commandSubscribe, Destination: topic}); err != nil {
				resubErr = err
				break
			}
		}
		t.mu.Unlock()

		if resubErr != nil {
			t.log.Warn("Resubscribe failed after redial", "error", resubErr)
			continue
		}
		t.log.Info("Transport reconnected", "attempt", attempt)
		return true
	}
	return false
}

func (t *Transport) giveUp() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	close(t.frames)
	t.log.Error("Transport gave up, frames channel closed")
}
