// Package conversation decides which peer the session is bound to when
// a conversation-affecting event arrives. Each role interprets the same
// stream differently; the role strategies in this package isolate those
// transition tables behind one handler interface.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"support-chat/contract"
	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/feed"
	"support-chat/presence"
)

// Binder holds the state every role strategy mutates: the session, the
// roster, the renderer feed and the external collaborators. It enforces
// at-most-one-active-peer by funneling every bind through itself.
type Binder struct {
	log       *slog.Logger
	session   *domain.Session
	roster    *presence.Roster
	feed      *feed.Feed
	directory contract.Directory
	transport contract.Transport
	renderer  contract.Renderer
}

func NewBinder(
	log *slog.Logger,
	session *domain.Session,
	roster *presence.Roster,
	messageFeed *feed.Feed,
	directory contract.Directory,
	transport contract.Transport,
	renderer contract.Renderer,
) *Binder {
	return &Binder{
		log:       log,
		session:   session,
		roster:    roster,
		feed:      messageFeed,
		directory: directory,
		transport: transport,
		renderer:  renderer,
	}
}

func (b *Binder) Session() *domain.Session { return b.session }
func (b *Binder) Roster() *presence.Roster { return b.roster }

// Compose sends content to the currently bound peer. The local copy is
// rendered optimistically with an empty id; the server assigns the id
// once the message is stored.
func (b *Binder) Compose(ctx context.Context, content string) error {
	if !b.session.Connected() {
		return apperrors.ErrNotConnected
	}
	if b.session.Role() == domain.RoleAdmin {
		// Observation is read-only; an admin never writes into the
		// watched conversation.
		return apperrors.ErrUnsupportedForRole
	}
	if !b.session.HasConversation() {
		return apperrors.ErrNoActivePeer
	}
	msg := domain.Message{
		SenderID:    b.session.LocalID(),
		RecipientID: b.session.ActivePeer(),
		Content:     content,
		Timestamp:   time.Now().UTC(),
	}
	if err := b.transport.Send("/app/chat", msg); err != nil {
		return fmt.Errorf("sending chat message: %w", err)
	}
	b.feed.Ingest(msg)
	return nil
}

// bindAndFetch commits a binding and replaces the feed with the stored
// history between the two identities. Every rebind clears the previous
// watermark so a repeated first message still renders.
func (b *Binder) bindAndFetch(ctx context.Context, peerID string) error {
	if !b.session.Bind(peerID) && !b.session.BoundTo(peerID) {
		return apperrors.ErrNotConnected
	}
	b.feed.Clear()
	b.roster.ClearUnread(peerID)
	history, err := b.directory.History(ctx, b.session.LocalID(), peerID)
	if err != nil {
		// The binding stands; history is a rendering nicety. The feed
		// stays empty and new messages keep flowing.
		b.log.Warn("History fetch failed", "peer", peerID, "error", err)
		return nil
	}
	b.feed.Replace(peerID, history)
	return nil
}

// unbind clears any current conversation along with the visible feed.
// It reports whether there was anything to clear, making duplicate
// departure events idempotent.
func (b *Binder) unbind() bool {
	if !b.session.Unbind() {
		return false
	}
	b.feed.Clear()
	return true
}
