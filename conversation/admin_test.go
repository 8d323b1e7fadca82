package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

func newAdminHarness() (*harness, *Admin) {
	h := newHarness("root", domain.RoleAdmin)
	h.roster.ApplyPresence("eng1", domain.RoleEngineer, domain.StatusOnline)
	h.roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOnline)
	h.roster.ApplyPresence("u2", domain.RoleRegular, domain.StatusOnline)
	return h, NewAdmin(h.binder)
}

func TestAdmin_Selecting_Free_Peer_Is_Rejected(t *testing.T) {
	req := require.New(t)
	_, admin := newAdminHarness()

	// When selecting a peer with no active conversation
	err := admin.OnLocalSelect(context.Background(), "u1")

	// Then observation is refused and no pair is entered
	req.ErrorIs(err, apperrors.ErrPeerNotBusy)
	left, right := admin.Observing()
	req.Empty(left)
	req.Empty(right)
}

func TestAdmin_Selecting_Busy_Peer_Enters_Observing(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.directory.partnerResp = "eng1"
	h.directory.history["u1|eng1"] = []domain.Message{
		{ID: "3", SenderID: "u1", RecipientID: "eng1", Content: "help"},
		{ID: "4", SenderID: "eng1", RecipientID: "u1", Content: "on it"},
	}

	// When selecting the busy side of a conversation
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	// Then the observed pair is (u1, eng1) with its history visible
	left, right := admin.Observing()
	req.Equal("u1", left)
	req.Equal("eng1", right)
	req.Len(h.timeline.Messages, 2)
}

func TestAdmin_Observation_Is_Read_Only(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.directory.partnerResp = "eng1"
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	// When the observing admin tries to write into the conversation
	err := h.binder.Compose(context.Background(), "admin talking")

	// Then the send is refused and nothing reaches the transport
	req.ErrorIs(err, apperrors.ErrUnsupportedForRole)
	req.Empty(h.transport.sent)
}

func TestAdmin_Mirrored_Traffic_Of_Observed_Pair_Renders(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.directory.partnerResp = "eng1"
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	// When mirrored traffic for the pair arrives
	admin.OnMessage(context.Background(), domain.Message{ID: "7", SenderID: "eng1", RecipientID: "u1", Content: "done"})

	// Then it renders; traffic of other pairs only moves indicators
	req.Len(h.timeline.Messages, 1)
	admin.OnMessage(context.Background(), domain.Message{ID: "8", SenderID: "u2", RecipientID: "eng2", Content: "other"})
	req.Len(h.timeline.Messages, 1)
	peer, _ := h.roster.Get("u2")
	req.Equal(1, peer.Unread)
}

func TestAdmin_Observed_Participant_Offline_Drops_Pair(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.directory.partnerResp = "eng1"
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	// When one side of the pair disappears
	admin.OnPresence(context.Background(), "eng1", domain.RoleEngineer, domain.StatusOffline)

	// Then observation ends
	left, right := admin.Observing()
	req.Empty(left)
	req.Empty(right)
	req.Empty(h.timeline.Messages)
	req.False(h.session.HasConversation())
}

func TestAdmin_Reselect_Replaces_Observed_Pair(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.roster.ApplyStatus("u2", true)
	h.directory.partnerResp = "eng1"
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	// When selecting a different busy peer
	h.directory.partnerResp = "eng2"
	req.NoError(admin.OnLocalSelect(context.Background(), "u2"))

	left, right := admin.Observing()
	req.Equal("u2", left)
	req.Equal("eng2", right)
}

func TestAdmin_Finish_Leaves_Observation(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)
	h.directory.partnerResp = "eng1"
	req.NoError(admin.OnLocalSelect(context.Background(), "u1"))

	req.NoError(admin.OnLocalFinish(context.Background()))

	left, _ := admin.Observing()
	req.Empty(left)
	req.ErrorIs(admin.OnLocalFinish(context.Background()), apperrors.ErrNoActivePeer)
}

func TestAdmin_Busy_Flip_Only_Moves_Markers(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()

	// When a status flip arrives
	admin.OnStatus(context.Background(), "u1", true)

	// Then only the overview marker changes
	peer, _ := h.roster.Get("u1")
	req.True(peer.Busy)
	req.False(h.session.HasConversation())
}

func TestAdmin_Kick_Busy_Peer_Is_Refused(t *testing.T) {
	req := require.New(t)
	h, admin := newAdminHarness()
	h.roster.ApplyStatus("u1", true)

	// When kicking someone still in a conversation
	err := admin.Kick(context.Background(), "u1")

	// Then the call never leaves the client
	req.ErrorIs(err, apperrors.ErrPeerBusy)
	req.Empty(h.directory.kickCalls)

	// And a free peer goes through
	req.NoError(admin.Kick(context.Background(), "u2"))
	req.Equal([]string{"u2"}, h.directory.kickCalls)
}
