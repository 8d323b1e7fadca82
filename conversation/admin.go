package conversation

import (
	"context"
	"fmt"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

// Admin observes conversations without taking part. Its binding is a
// read-only (left, right) pair distinct from the admin's own identity,
// entered by selecting a currently-busy peer.
type Admin struct {
	*Binder

	left  string
	right string
}

func NewAdmin(b *Binder) *Admin { return &Admin{Binder: b} }

// Observing exposes the watched pair, empty strings when idle.
func (a *Admin) Observing() (string, string) { return a.left, a.right }

// OnPresence maintains the overview and drops the observed pair when
// either side disappears.
func (a *Admin) OnPresence(ctx context.Context, id string, role domain.Role, status domain.PresenceStatus) {
	changed := a.roster.ApplyPresence(id, role, status)
	if status == domain.StatusOffline && (id == a.left || id == a.right) {
		// The partner side of the pair may never have been tracked
		// locally, so the departure is not gated on the roster outcome.
		a.log.Info("Observed participant went offline", "id", id)
		a.stopObserving()
		changed = true
	}
	if changed {
		a.showOverview()
	}
}

// OnStatus only moves the busy dot markers; an admin never unbinds on
// status flips, the pair lives until a participant leaves or another
// selection replaces it.
func (a *Admin) OnStatus(ctx context.Context, userID string, busy bool) {
	if a.roster.ApplyStatus(userID, busy) {
		a.showOverview()
	}
}

// OnMessage renders mirrored traffic belonging to the observed pair and
// bumps unread markers for everything else.
func (a *Admin) OnMessage(ctx context.Context, msg domain.Message) {
	if a.watching(msg.SenderID, msg.RecipientID) {
		a.feed.Ingest(msg)
		return
	}
	a.roster.IncrementUnread(msg.SenderID)
	a.showOverview()
}

// OnLocalSelect enters observation of a busy peer. Selecting a free
// peer is rejected: there is no active conversation to observe.
func (a *Admin) OnLocalSelect(ctx context.Context, peerID string) error {
	if !a.session.Connected() {
		return apperrors.ErrNotConnected
	}
	peer, ok := a.roster.Get(peerID)
	if !ok {
		return fmt.Errorf("peer %s: %w", peerID, apperrors.ErrInvalidPayload)
	}
	if !peer.Busy {
		return fmt.Errorf("peer %s: %w", peerID, apperrors.ErrPeerNotBusy)
	}
	partner, err := a.directory.Partner(ctx, peerID)
	if err != nil {
		return fmt.Errorf("partner lookup for %s: %w", peerID, err)
	}

	a.left, a.right = peerID, partner
	a.session.Unbind()
	a.session.Bind(peerID)
	a.feed.Clear()
	a.roster.ClearUnread(peerID)

	history, err := a.directory.History(ctx, peerID, partner)
	if err != nil {
		a.log.Warn("History fetch for observed pair failed", "left", peerID, "right", partner, "error", err)
	} else {
		a.feed.Replace(peerID, history)
	}
	a.showOverview()
	return nil
}

// OnLocalFinish leaves observation mode.
func (a *Admin) OnLocalFinish(ctx context.Context) error {
	if a.left == "" {
		return apperrors.ErrNoActivePeer
	}
	a.stopObserving()
	a.showOverview()
	return nil
}

// Kick removes a free user through the admin endpoint. The server
// refuses while the user is busy; local state is left untouched either
// way, the departure arrives through the presence broadcast.
func (a *Admin) Kick(ctx context.Context, peerID string) error {
	if peer, ok := a.roster.Get(peerID); ok && peer.Busy {
		return fmt.Errorf("peer %s: %w", peerID, apperrors.ErrPeerBusy)
	}
	if err := a.directory.Kick(ctx, peerID); err != nil {
		return fmt.Errorf("kicking %s: %w", peerID, err)
	}
	return nil
}

func (a *Admin) watching(sender, recipient string) bool {
	if a.left == "" {
		return false
	}
	pair := map[string]bool{a.left: true, a.right: true}
	return pair[sender] && pair[recipient]
}

func (a *Admin) stopObserving() {
	a.left, a.right = "", ""
	a.unbind()
}

// showOverview re-renders the full user list with busy markers.
func (a *Admin) showOverview() {
	a.renderer.ShowRoster(a.roster.All())
}
