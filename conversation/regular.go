package conversation

import (
	"context"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

// Regular is the end-user strategy. It starts on the self-addressed
// placeholder and binds to whichever engineer speaks first; a message
// from a different engineer while bound is a hand-off.
type Regular struct {
	*Binder
}

func NewRegular(b *Binder) *Regular { return &Regular{Binder: b} }

// OnPresence only matters for the bound engineer's departure. A REGULAR
// session does not maintain a roster view, but departures still arrive
// through the personal routing of the public topic on some deployments,
// so the transition is guarded here rather than assumed unreachable.
func (r *Regular) OnPresence(ctx context.Context, id string, role domain.Role, status domain.PresenceStatus) {
	r.roster.ApplyPresence(id, role, status)
	if status == domain.StatusOffline && r.session.BoundTo(id) {
		if r.unbind() {
			r.log.Info("Bound engineer went offline, back to idle", "engineer", id)
			r.renderer.ShowNotice("Your engineer disconnected. Please wait for a new one.")
		}
	}
}

// OnStatus unbinds when the counterpart's conversation ends. busy=true
// for the bound peer should not normally fire, but it is guarded: it
// means the engineer picked someone else.
func (r *Regular) OnStatus(ctx context.Context, userID string, busy bool) {
	r.roster.ApplyStatus(userID, busy)
	if !r.session.BoundTo(userID) {
		return
	}
	if r.unbind() {
		r.log.Info("Conversation released by engineer side", "engineer", userID, "busy", busy)
		r.renderer.ShowNotice("The conversation has ended.")
	}
}

// OnMessage is the only way a REGULAR session acquires a real binding.
// First inbound message from any sender other than self binds to that
// sender; a different sender while bound is an engineer hand-off, which
// clears the feed and refetches history.
func (r *Regular) OnMessage(ctx context.Context, msg domain.Message) {
	if msg.SenderID == r.session.LocalID() {
		// Broadcast echo of an optimistic send. The optimistic copy has
		// no id to compare, so suppression is by sender identity.
		return
	}
	if r.session.BoundTo(msg.SenderID) {
		r.feed.Ingest(msg)
		return
	}
	handOff := r.session.HasConversation()
	if err := r.bindAndFetch(ctx, msg.SenderID); err != nil {
		r.log.Error("Binding to engineer failed", "engineer", msg.SenderID, "error", err)
		return
	}
	// The triggering message renders too. When the fetched history
	// already contains it, the watermark parked by the refetch
	// suppresses the second copy.
	r.feed.Ingest(msg)
	if handOff {
		r.log.Info("Engineer hand-off", "engineer", msg.SenderID)
	} else {
		r.log.Info("Engineer initiated contact", "engineer", msg.SenderID)
	}
}

// OnLocalSelect is not available: an end-user never picks a counterpart.
func (r *Regular) OnLocalSelect(ctx context.Context, peerID string) error {
	return apperrors.ErrUnsupportedForRole
}

// OnLocalFinish is not available for the end-user side.
func (r *Regular) OnLocalFinish(ctx context.Context) error {
	return apperrors.ErrUnsupportedForRole
}
