package conversation

import (
	"context"
	"fmt"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

// Engineer is the support-agent strategy. Binding happens only through
// an explicit local selection and is provisional until the activation
// endpoint commits the pairing; a failed call rolls the bind back.
type Engineer struct {
	*Binder

	// Selection sequence implementing the later-action-wins rule: an
	// activation result whose sequence is no longer current is stale
	// and its effect is discarded.
	selectSeq uint64
}

func NewEngineer(b *Binder) *Engineer { return &Engineer{Binder: b} }

// OnPresence keeps the roster current and releases the conversation
// when the bound user disappears without announcing anything.
func (e *Engineer) OnPresence(ctx context.Context, id string, role domain.Role, status domain.PresenceStatus) {
	changed := e.roster.ApplyPresence(id, role, status)
	if status == domain.StatusOffline && e.session.BoundTo(id) {
		// The bound user may have dropped off the roster already (the
		// free-list reconciliation hides busy peers), so the departure
		// is handled regardless of the roster outcome.
		if e.unbind() {
			e.log.Info("Bound user went offline", "user", id)
			e.renderer.ShowNotice("The user disconnected.")
			changed = true
		}
	}
	if changed {
		e.showSelectable()
	}
}

// OnStatus applies the busy flip. busy=true removes the peer from the
// selectable list but must never unbind the engineer holding that very
// conversation; busy=false for the bound peer means it was released
// elsewhere, and the free-list composition is refetched from the server
// rather than patched locally.
func (e *Engineer) OnStatus(ctx context.Context, userID string, busy bool) {
	changed := e.roster.ApplyStatus(userID, busy)
	if busy {
		if changed {
			e.showSelectable()
		}
		return
	}
	if e.session.BoundTo(userID) && e.unbind() {
		e.log.Info("Bound user was released elsewhere", "user", userID)
		e.renderer.ShowNotice("The conversation has ended.")
	}
	e.refreshSelectable(ctx)
}

// OnMessage renders messages from the displayed counterpart and bumps
// the unread indicator for everyone else. An inbound message never
// rebinds an engineer; binding is a local decision.
func (e *Engineer) OnMessage(ctx context.Context, msg domain.Message) {
	if msg.SenderID == e.session.LocalID() {
		return
	}
	if e.session.BoundTo(msg.SenderID) {
		e.feed.Ingest(msg)
		return
	}
	e.roster.IncrementUnread(msg.SenderID)
	e.showSelectable()
}

// OnLocalSelect requests a conversation with a free user. The bind is
// applied optimistically, then committed by the activation endpoint; on
// failure the previous binding is restored and the conversation UI is
// left hidden.
func (e *Engineer) OnLocalSelect(ctx context.Context, peerID string) error {
	if !e.session.Connected() {
		return apperrors.ErrNotConnected
	}
	if peerID == e.session.LocalID() {
		return apperrors.ErrSelfSelection
	}
	peer, ok := e.roster.Get(peerID)
	if !ok || !peer.Online {
		return fmt.Errorf("peer %s: %w", peerID, apperrors.ErrInvalidPayload)
	}
	if peer.Busy {
		return fmt.Errorf("peer %s: %w", peerID, apperrors.ErrPeerBusy)
	}
	if e.session.BoundTo(peerID) {
		return nil
	}

	// Release any current pairing first; deactivation is optimistic.
	prev := e.session.ActivePeer()
	if e.session.HasConversation() {
		if err := e.directory.Deactivate(ctx, e.session.LocalID(), prev); err != nil {
			e.log.Warn("Deactivation of previous pairing failed, releasing anyway",
				"user", prev, "error", err)
		}
		e.unbind()
	}

	e.selectSeq++
	seq := e.selectSeq
	e.session.Bind(peerID)

	err := e.directory.Activate(ctx, e.session.LocalID(), peerID)
	if seq != e.selectSeq {
		// A later selection took over while this activation was in
		// flight. Its effect wins; release the stale pairing.
		if err == nil {
			_ = e.directory.Deactivate(ctx, e.session.LocalID(), peerID)
		}
		return apperrors.ErrStaleSelection
	}
	if err != nil {
		e.session.Unbind()
		e.log.Warn("Activation refused, rolling back", "user", peerID, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrActivationFailed, err)
	}

	if err := e.bindAndFetch(ctx, peerID); err != nil {
		return err
	}
	e.showSelectable()
	return nil
}

// OnLocalFinish ends the conversation. The local release is kept even
// when the deactivation call fails: ending a conversation is safe to
// assume even if the acknowledgment is lost.
func (e *Engineer) OnLocalFinish(ctx context.Context) error {
	if !e.session.HasConversation() {
		return apperrors.ErrNoActivePeer
	}
	peer := e.session.ActivePeer()
	e.unbind()
	if err := e.directory.Deactivate(ctx, e.session.LocalID(), peer); err != nil {
		e.log.Warn("Deactivation call failed, conversation released locally",
			"user", peer, "error", err)
	}
	e.refreshSelectable(ctx)
	return nil
}

// showSelectable re-renders the engineer's list from local state.
func (e *Engineer) showSelectable() {
	e.renderer.ShowRoster(e.roster.Selectable(e.session.LocalID()))
}

// refreshSelectable refetches the authoritative free list. Free-list
// composition depends on server-side de-conflicting, so a full fetch
// replaces the local view instead of an incremental patch.
func (e *Engineer) refreshSelectable(ctx context.Context) {
	users, err := e.directory.OnlineUsers(ctx, domain.RoleEngineer)
	if err != nil {
		e.log.Warn("Online-users refresh failed, keeping local view", "error", err)
		e.showSelectable()
		return
	}
	e.roster.Reconcile(users)
	e.showSelectable()
}
