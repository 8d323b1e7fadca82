// Package runtime wires the session core together: it owns the event
// loop that serializes transport frames and local commands, and it is
// the only place aware of transport topic names.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"support-chat/contract"
	"support-chat/conversation"
	"support-chat/domain"
	"support-chat/domain/event"
	apperrors "support-chat/errors"
	"support-chat/feed"
	"support-chat/presence"
)

// Topic layout of the surrounding service. Semantic names, not
// configurable: the server side defines them.
const (
	topicPublic     = "/topic/public"
	topicUserStatus = "/topic/user-status"
	topicAdminFeed  = "/topic/admin-feed"
	queueErrors     = "/user/queue/errors"
	queuePrefix     = "/queue/"

	destAddUser    = "/app/user.addUser"
	destDisconnect = "/app/user.disconnectUser"
)

// userPayload is the public broadcast body: presence changes.
type userPayload struct {
	NickName string                `json:"nickName" validate:"required"`
	Role     domain.Role           `json:"role" validate:"required,oneof=REGULAR ENGINEER ADMIN"`
	Status   domain.PresenceStatus `json:"status" validate:"required,oneof=ONLINE OFFLINE"`
}

// busyPayload is the status channel body.
type busyPayload struct {
	UserID string `json:"userId" validate:"required"`
	Busy   bool   `json:"busy"`
}

// chatPayload is a stored message notification. The id is present once
// the server has persisted the message; local optimistic copies never
// travel through here.
type chatPayload struct {
	ID          domain.FlexID `json:"id"`
	SenderID    string        `json:"senderId" validate:"required"`
	RecipientID string        `json:"recipientId" validate:"required"`
	Content     string        `json:"content" validate:"required"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Router dispatches each inbound event to the presence tracker and the
// role strategy, and funnels local commands through the same loop so no
// two state transitions ever interleave.
type Router struct {
	log      *slog.Logger
	validate *validator.Validate

	session   *domain.Session
	roster    *presence.Roster
	feed      *feed.Feed
	binder    *conversation.Binder
	strategy  contract.RoleStrategy
	transport contract.Transport
	directory contract.Directory
	renderer  contract.Renderer

	cmds chan domain.Command
}

func NewRouter(
	log *slog.Logger,
	session *domain.Session,
	roster *presence.Roster,
	messageFeed *feed.Feed,
	binder *conversation.Binder,
	transport contract.Transport,
	directory contract.Directory,
	renderer contract.Renderer,
	commandBuffer int,
) *Router {
	return &Router{
		log:       log,
		validate:  validator.New(),
		session:   session,
		roster:    roster,
		feed:      messageFeed,
		binder:    binder,
		transport: transport,
		directory: directory,
		renderer:  renderer,
		cmds:      make(chan domain.Command, commandBuffer),
	}
}

// Login performs the registration handshake: connect, subscribe the
// role's topics, announce the identity, then fetch the initial roster.
// Called before the loop starts; the error queue can still veto the
// identity afterwards.
func (r *Router) Login(ctx context.Context, localID string, role domain.Role) error {
	if localID == "" || !role.Valid() {
		return fmt.Errorf("identity %q/%s: %w", localID, role, apperrors.ErrInvalidPayload)
	}
	r.session.Register(localID, role)

	switch role {
	case domain.RoleEngineer:
		r.strategy = conversation.NewEngineer(r.binder)
	case domain.RoleAdmin:
		r.strategy = conversation.NewAdmin(r.binder)
	default:
		r.strategy = conversation.NewRegular(r.binder)
	}

	if err := r.transport.Connect(ctx); err != nil {
		r.session.Reset()
		return fmt.Errorf("transport connect: %w", err)
	}

	topics := []string{queuePrefix + localID, queueErrors, topicUserStatus}
	if role == domain.RoleEngineer || role == domain.RoleAdmin {
		topics = append(topics, topicPublic)
	}
	if role == domain.RoleAdmin {
		topics = append(topics, topicAdminFeed)
	}
	for _, topic := range topics {
		if err := r.transport.Subscribe(topic); err != nil {
			r.session.Reset()
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}

	register := userPayload{NickName: localID, Role: role, Status: domain.StatusOnline}
	if err := r.transport.Send(destAddUser, register); err != nil {
		r.session.Reset()
		return fmt.Errorf("registering identity: %w", err)
	}
	r.session.OnRegistered()
	r.log.Info("Session registered", "id", localID, "role", role)

	r.refreshRoster(ctx)
	return nil
}

// Dispatch enqueues a local command for the loop. It never blocks the
// UI: when the loop is saturated the command is dropped with a logged
// diagnostic, mirroring the malformed-event policy.
func (r *Router) Dispatch(cmd domain.Command) {
	select {
	case r.cmds <- cmd:
	default:
		r.log.Warn("Command dropped, loop saturated", "command", cmd.CommandName())
	}
}

// Run is the single-threaded event loop. Every handler runs to
// completion before the next input is looked at.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-r.transport.Frames():
			if !ok {
				r.handle(ctx, event.TransportLost{})
				return nil
			}
			r.route(ctx, frame)
		case cmd := <-r.cmds:
			r.apply(ctx, cmd)
		}
	}
}

// route decodes a frame into a typed event and applies it. Unknown
// topics and malformed payloads are dropped with a diagnostic: losing
// one presence tick must not crash the session.
func (r *Router) route(ctx context.Context, frame contract.Frame) {
	ev, ok := r.decodeFrame(frame)
	if !ok {
		return
	}
	r.handle(ctx, ev)
}

// decodeFrame classifies a frame by topic, enforcing the role's topic
// visibility before any payload is parsed.
func (r *Router) decodeFrame(frame contract.Frame) (event.Event, bool) {
	role := r.session.Role()
	switch {
	case frame.Topic == topicPublic:
		if role == domain.RoleRegular {
			return nil, false
		}
		var p userPayload
		if !r.decode(frame, &p) {
			return nil, false
		}
		return event.PresenceChanged{ID: p.NickName, Role: p.Role, Status: p.Status}, true

	case frame.Topic == topicUserStatus:
		var p busyPayload
		if !r.decode(frame, &p) {
			return nil, false
		}
		return event.BusyChanged{UserID: p.UserID, Busy: p.Busy}, true

	case frame.Topic == topicAdminFeed:
		if role != domain.RoleAdmin {
			return nil, false
		}
		var p chatPayload
		if !r.decode(frame, &p) {
			return nil, false
		}
		return event.MessageReceived{Message: p.toMessage()}, true

	case frame.Topic == queueErrors:
		return event.IdentityRejected{Reason: strings.TrimSpace(string(frame.Body))}, true

	case strings.HasPrefix(frame.Topic, queuePrefix):
		if frame.Topic != queuePrefix+r.session.LocalID() {
			r.log.Debug("Ignoring frame for foreign queue", "topic", frame.Topic)
			return nil, false
		}
		var p chatPayload
		if !r.decode(frame, &p) {
			return nil, false
		}
		return event.MessageReceived{Message: p.toMessage()}, true

	default:
		r.log.Warn("Dropping frame for unknown topic", "topic", frame.Topic)
		return nil, false
	}
}

// handle applies one typed event to completion.
func (r *Router) handle(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.PresenceChanged:
		r.strategy.OnPresence(ctx, e.ID, e.Role, e.Status)
	case event.BusyChanged:
		r.strategy.OnStatus(ctx, e.UserID, e.Busy)
	case event.MessageReceived:
		r.strategy.OnMessage(ctx, e.Message)
	case event.IdentityRejected:
		r.onIdentityRejected(e.Reason)
	case event.TransportLost:
		r.onTransportLost()
	default:
		r.log.Warn("Dropping unhandled event", "kind", ev.Kind())
	}
}

// apply executes a local command. Failures are surfaced to the user and
// logged; none of them are fatal.
func (r *Router) apply(ctx context.Context, cmd domain.Command) {
	var err error
	switch c := cmd.(type) {
	case domain.SelectPeer:
		err = r.strategy.OnLocalSelect(ctx, c.PeerID)
	case domain.FinishConversation:
		err = r.strategy.OnLocalFinish(ctx)
	case domain.ComposeMessage:
		err = r.binder.Compose(ctx, c.Content)
	case domain.KickPeer:
		admin, ok := r.strategy.(*conversation.Admin)
		if !ok {
			err = apperrors.ErrUnsupportedForRole
			break
		}
		err = admin.Kick(ctx, c.PeerID)
	case domain.RefreshRoster:
		r.refreshRoster(ctx)
	case domain.Logout:
		r.logout()
	default:
		err = fmt.Errorf("command %s: %w", cmd.CommandName(), apperrors.ErrInvalidPayload)
	}
	if err != nil {
		r.log.Warn("Command failed", "command", cmd.CommandName(), "error", err)
		r.renderer.ShowError(err.Error())
	}
}

// refreshRoster reconciles the peer set against the server's
// authoritative list. What "the list" means depends on the role: the
// engineer sees the de-conflicted free list, the admin sees everyone
// with busy flags, the end-user keeps no list at all.
func (r *Router) refreshRoster(ctx context.Context) {
	switch r.session.Role() {
	case domain.RoleEngineer:
		users, err := r.directory.OnlineUsers(ctx, domain.RoleEngineer)
		if err != nil {
			r.log.Warn("Roster reconciliation failed", "error", err)
			return
		}
		r.roster.Reconcile(users)
		r.renderer.ShowRoster(r.roster.Selectable(r.session.LocalID()))
	case domain.RoleAdmin:
		users, err := r.directory.Overview(ctx)
		if err != nil {
			r.log.Warn("Overview reconciliation failed", "error", err)
			return
		}
		r.roster.Reconcile(users)
		r.renderer.ShowRoster(r.roster.All())
	}
}

// logout announces departure and returns to the login state. The
// disconnect message is best effort: the server also reaps the session
// when the transport drops.
func (r *Router) logout() {
	if r.session.LocalID() != "" {
		payload := userPayload{
			NickName: r.session.LocalID(),
			Role:     r.session.Role(),
			Status:   domain.StatusOffline,
		}
		if err := r.transport.Send(destDisconnect, payload); err != nil {
			r.log.Warn("Disconnect announcement failed", "error", err)
		}
	}
	r.session.Reset()
	r.feed.Clear()
	r.renderer.ShowNotice("Logged out.")
	r.log.Info("Session closed")
}

// onIdentityRejected handles the duplicate-nickname veto from the
// personal error queue. The session never stays connected.
func (r *Router) onIdentityRejected(reason string) {
	r.log.Warn("Identity rejected", "reason", reason)
	r.session.Reset()
	if reason == "" {
		reason = apperrors.ErrNicknameTaken.Error()
	}
	r.renderer.ShowError(reason)
}

// onTransportLost surfaces an unrecoverable transport fault. The worst
// outcome of any fault in this core is a forced return to login.
func (r *Router) onTransportLost() {
	if !r.session.Connected() {
		// Clean shutdown or logout already handled the state.
		return
	}
	r.log.Error("Transport lost, resetting session")
	r.session.Reset()
	r.feed.Clear()
	r.renderer.ShowError("Connection lost. Please log in again.")
}

// decode unmarshals and validates a frame body in one step.
func (r *Router) decode(frame contract.Frame, target any) bool {
	if err := json.Unmarshal(frame.Body, target); err != nil {
		r.log.Warn("Dropping malformed payload", "topic", frame.Topic, "error", err)
		return false
	}
	if err := r.validate.Struct(target); err != nil {
		r.log.Warn("Dropping invalid payload", "topic", frame.Topic, "error", err)
		return false
	}
	return true
}

func (p chatPayload) toMessage() domain.Message {
	return domain.Message{
		ID:          string(p.ID),
		SenderID:    p.SenderID,
		RecipientID: p.RecipientID,
		Content:     p.Content,
		Timestamp:   p.Timestamp,
	}
}
