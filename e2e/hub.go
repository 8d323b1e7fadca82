// Package e2e exercises the assembled session core against an
// in-process hub that mimics the server's topic fan-out and its REST
// surface, without any network in between.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"support-chat/contract"
	"support-chat/domain"
	apperrors "support-chat/errors"
)

// Hub is the in-memory server stand-in. It implements the directory
// surface directly and hands out one Transport per client. Fan-out
// follows the real broker: application topics are broadcast to
// subscribers, queues and the error queue are per-identity.
type Hub struct {
	mu    sync.Mutex
	conns []*hubConn
	seq   int
	store []domain.Message
	roles map[string]domain.Role
	busy  map[string]bool
	pairs map[string]string
}

func NewHub() *Hub {
	return &Hub{
		roles: make(map[string]domain.Role),
		busy:  make(map[string]bool),
		pairs: make(map[string]string),
	}
}

// Client hands out a fresh transport wired into the hub.
func (h *Hub) Client(frameBuffer int) contract.Transport {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &hubConn{
		hub:    h,
		subs:   make(map[string]bool),
		frames: make(chan contract.Frame, frameBuffer),
	}
	h.conns = append(h.conns, c)
	return c
}

type hubConn struct {
	hub      *Hub
	identity string
	subs     map[string]bool
	frames   chan contract.Frame
	closed   bool
}

func (c *hubConn) Connect(ctx context.Context) error { return nil }

func (c *hubConn) Subscribe(topic string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.subs[topic] = true
	return nil
}

func (c *hubConn) Send(destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.hub.handle(c, destination, body)
}

func (c *hubConn) Frames() <-chan contract.Frame { return c.frames }

func (c *hubConn) Close() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.frames)
	}
	return nil
}

type presenceBody struct {
	NickName string                `json:"nickName"`
	Role     domain.Role           `json:"role"`
	Status   domain.PresenceStatus `json:"status"`
}

type statusBody struct {
	UserID string `json:"userId"`
	Busy   bool   `json:"busy"`
}

// handle routes an application send the way the server would. Caller
// holds the hub lock.
func (h *Hub) handle(from *hubConn, destination string, body []byte) error {
	switch destination {
	case "/app/user.addUser":
		var p presenceBody
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		if _, taken := h.roles[p.NickName]; taken {
			h.deliver(from, "/user/queue/errors",
				[]byte(fmt.Sprintf("nickname %q already in use", p.NickName)))
			return nil
		}
		from.identity = p.NickName
		h.roles[p.NickName] = p.Role
		h.broadcast("/topic/public", presenceBody{
			NickName: p.NickName, Role: p.Role, Status: domain.StatusOnline,
		})

	case "/app/user.disconnectUser":
		var p presenceBody
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		h.drop(p.NickName)

	case "/app/chat":
		var msg domain.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			return err
		}
		h.seq++
		msg.ID = strconv.Itoa(h.seq)
		h.store = append(h.store, msg)
		stored, _ := json.Marshal(msg)
		h.deliverToIdentity(msg.RecipientID, "/queue/"+msg.RecipientID, stored)
		h.broadcast("/topic/admin-feed", msg)

	default:
		return fmt.Errorf("destination %s: %w", destination, apperrors.ErrUnknownTopic)
	}
	return nil
}

// drop removes an identity, releasing any pairing it held. Caller holds
// the hub lock.
func (h *Hub) drop(id string) {
	role, ok := h.roles[id]
	if !ok {
		return
	}
	if partner, paired := h.pairs[id]; paired {
		h.release(id, partner)
	}
	delete(h.roles, id)
	delete(h.busy, id)
	h.broadcast("/topic/public", presenceBody{
		NickName: id, Role: role, Status: domain.StatusOffline,
	})
}

// release clears a pairing and announces both sides free. Caller holds
// the hub lock.
func (h *Hub) release(a, b string) {
	delete(h.pairs, a)
	delete(h.pairs, b)
	h.busy[a] = false
	h.busy[b] = false
	h.broadcast("/topic/user-status", statusBody{UserID: a, Busy: false})
	h.broadcast("/topic/user-status", statusBody{UserID: b, Busy: false})
}

func (h *Hub) broadcast(topic string, payload any) {
	body, _ := json.Marshal(payload)
	for _, c := range h.conns {
		if c.subs[topic] {
			h.push(c, topic, body)
		}
	}
}

func (h *Hub) deliver(target *hubConn, topic string, body []byte) {
	if target.subs[topic] {
		h.push(target, topic, body)
	}
}

func (h *Hub) deliverToIdentity(id, topic string, body []byte) {
	for _, c := range h.conns {
		if c.identity == id && c.subs[topic] {
			h.push(c, topic, body)
		}
	}
}

// push never blocks: a saturated client loses frames, like a broker
// dropping a slow consumer.
func (h *Hub) push(c *hubConn, topic string, body []byte) {
	if c.closed {
		return
	}
	select {
	case c.frames <- contract.Frame{Topic: topic, Body: body}:
	default:
	}
}

// --- directory surface -------------------------------------------------

func (h *Hub) OnlineUsers(ctx context.Context, role domain.Role) ([]domain.Peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var peers []domain.Peer
	for id, r := range h.roles {
		if role == domain.RoleEngineer && (r != domain.RoleRegular || h.busy[id]) {
			continue
		}
		peers = append(peers, domain.Peer{ID: id, Role: r, Online: true, Busy: h.busy[id]})
	}
	return peers, nil
}

func (h *Hub) History(ctx context.Context, a, b string) ([]domain.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var history []domain.Message
	for _, m := range h.store {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			history = append(history, m)
		}
	}
	return history, nil
}

func (h *Hub) Activate(ctx context.Context, engineerID, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy[userID] {
		return apperrors.ErrPeerBusy
	}
	h.busy[engineerID] = true
	h.busy[userID] = true
	h.pairs[engineerID] = userID
	h.pairs[userID] = engineerID
	h.broadcast("/topic/user-status", statusBody{UserID: engineerID, Busy: true})
	h.broadcast("/topic/user-status", statusBody{UserID: userID, Busy: true})
	return nil
}

func (h *Hub) Deactivate(ctx context.Context, engineerID, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.release(engineerID, userID)
	return nil
}

func (h *Hub) Overview(ctx context.Context) ([]domain.Peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var peers []domain.Peer
	for id, r := range h.roles {
		if r == domain.RoleAdmin {
			continue
		}
		peers = append(peers, domain.Peer{ID: id, Role: r, Online: true, Busy: h.busy[id]})
	}
	return peers, nil
}

func (h *Hub) Partner(ctx context.Context, nick string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	partner, ok := h.pairs[nick]
	if !ok {
		return "", apperrors.ErrPeerNotBusy
	}
	return partner, nil
}

func (h *Hub) Kick(ctx context.Context, nick string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy[nick] {
		return apperrors.ErrPeerBusy
	}
	h.drop(nick)
	return nil
}
