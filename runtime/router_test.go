package runtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"support-chat/contract"
	"support-chat/conversation"
	"support-chat/domain"
	"support-chat/feed"
	"support-chat/presence"
	"support-chat/projection"
)

type fakeTransport struct {
	subs   []string
	sent   []string
	frames chan contract.Frame
}

func (t *fakeTransport) Connect(ctx context.Context) error { return nil }
func (t *fakeTransport) Subscribe(topic string) error {
	t.subs = append(t.subs, topic)
	return nil
}
func (t *fakeTransport) Send(destination string, payload any) error {
	t.sent = append(t.sent, fmt.Sprintf("%s %v", destination, payload))
	return nil
}
func (t *fakeTransport) Frames() <-chan contract.Frame { return t.frames }
func (t *fakeTransport) Close() error                  { return nil }

type fakeDirectory struct {
	online   []domain.Peer
	overview []domain.Peer
	history  []domain.Message
	partner  string
}

func (d *fakeDirectory) OnlineUsers(ctx context.Context, role domain.Role) ([]domain.Peer, error) {
	return d.online, nil
}
func (d *fakeDirectory) History(ctx context.Context, a, b string) ([]domain.Message, error) {
	return d.history, nil
}
func (d *fakeDirectory) Activate(ctx context.Context, engineerID, userID string) error   { return nil }
func (d *fakeDirectory) Deactivate(ctx context.Context, engineerID, userID string) error { return nil }
func (d *fakeDirectory) Overview(ctx context.Context) ([]domain.Peer, error) {
	return d.overview, nil
}
func (d *fakeDirectory) Partner(ctx context.Context, nick string) (string, error) {
	return d.partner, nil
}
func (d *fakeDirectory) Kick(ctx context.Context, nick string) error { return nil }

type routerHarness struct {
	router    *Router
	session   *domain.Session
	roster    *presence.Roster
	timeline  *projection.Timeline
	transport *fakeTransport
	directory *fakeDirectory
}

func newRouterHarness(t *testing.T, localID string, role domain.Role) *routerHarness {
	t.Helper()
	log := logs.GetLoggerFromString("ERROR")
	session := domain.NewSession()
	roster := presence.NewRoster(log)
	timeline := projection.NewTimeline()
	messageFeed := feed.New(log, timeline)
	transport := &fakeTransport{frames: make(chan contract.Frame, 16)}
	directory := &fakeDirectory{}
	binder := conversation.NewBinder(log, session, roster, messageFeed, directory, transport, timeline)
	router := NewRouter(log, session, roster, messageFeed, binder, transport, directory, timeline, 16)

	require.NoError(t, router.Login(context.Background(), localID, role))
	return &routerHarness{
		router:    router,
		session:   session,
		roster:    roster,
		timeline:  timeline,
		transport: transport,
		directory: directory,
	}
}

func TestRouter_Login_Subscribes_Role_Topics(t *testing.T) {
	req := require.New(t)

	// Given an engineer login
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	// Then the role's topics are subscribed and the identity announced
	req.Contains(h.transport.subs, "/queue/eng1")
	req.Contains(h.transport.subs, "/user/queue/errors")
	req.Contains(h.transport.subs, "/topic/user-status")
	req.Contains(h.transport.subs, "/topic/public")
	req.NotContains(h.transport.subs, "/topic/admin-feed")
	req.Len(h.transport.sent, 1)
	req.Contains(h.transport.sent[0], "/app/user.addUser")
	req.True(h.session.Connected())
}

func TestRouter_Login_Regular_Skips_Broadcast_Topic(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "bob", domain.RoleRegular)

	req.NotContains(h.transport.subs, "/topic/public")
	req.Contains(h.transport.subs, "/queue/bob")
}

func TestRouter_Login_Rejects_Bad_Identity(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	session := domain.NewSession()
	roster := presence.NewRoster(log)
	timeline := projection.NewTimeline()
	messageFeed := feed.New(log, timeline)
	transport := &fakeTransport{frames: make(chan contract.Frame)}
	binder := conversation.NewBinder(log, session, roster, messageFeed, &fakeDirectory{}, transport, timeline)
	router := NewRouter(log, session, roster, messageFeed, binder, transport, &fakeDirectory{}, timeline, 1)

	req.Error(router.Login(context.Background(), "", domain.RoleRegular))
	req.Error(router.Login(context.Background(), "x", domain.Role("GUEST")))
}

func TestRouter_Routes_Presence_To_Roster(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	// When a presence frame arrives on the public topic
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"ONLINE"}`),
	})

	// Then the peer is tracked
	peer, ok := h.roster.Get("u1")
	req.True(ok)
	req.True(peer.Online)
}

func TestRouter_Regular_Ignores_Public_Topic(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "bob", domain.RoleRegular)

	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"ONLINE"}`),
	})

	req.Zero(h.roster.Len())
}

func TestRouter_Drops_Malformed_Payload(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	// When garbage and an invalid status arrive
	h.router.route(context.Background(), contract.Frame{Topic: "/topic/public", Body: []byte(`{broken`)})
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"SLEEPING"}`),
	})

	// Then nothing changed and nothing crashed
	req.Zero(h.roster.Len())
}

func TestRouter_Drops_Unknown_Topic(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	h.router.route(context.Background(), contract.Frame{Topic: "/topic/weather", Body: []byte(`{}`)})

	req.Zero(h.roster.Len())
	req.Empty(h.timeline.Messages)
}

func TestRouter_Ignores_Foreign_Queue(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "bob", domain.RoleRegular)

	h.router.route(context.Background(), contract.Frame{
		Topic: "/queue/alice",
		Body:  []byte(`{"id":"1","senderId":"eng1","recipientId":"alice","content":"hi"}`),
	})

	req.Empty(h.timeline.Messages)
	req.False(h.session.HasConversation())
}

func TestRouter_Duplicate_Message_Renders_Once(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"ONLINE"}`),
	})
	h.router.apply(context.Background(), domain.SelectPeer{PeerID: "u1"})
	req.True(h.session.BoundTo("u1"))

	frame := contract.Frame{
		Topic: "/queue/eng1",
		Body:  []byte(`{"id":"42","senderId":"u1","recipientId":"eng1","content":"hello"}`),
	}

	// When the same stored message is delivered twice
	h.router.route(context.Background(), frame)
	h.router.route(context.Background(), frame)

	// Then exactly one renders
	req.Len(h.timeline.Messages, 1)
}

func TestRouter_Numeric_Message_Ids_Decode_And_Deduplicate(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"ONLINE"}`),
	})
	h.router.apply(context.Background(), domain.SelectPeer{PeerID: "u1"})

	// When the server serializes the id as a JSON number
	h.router.route(context.Background(), contract.Frame{
		Topic: "/queue/eng1",
		Body:  []byte(`{"id":42,"senderId":"u1","recipientId":"eng1","content":"hello"}`),
	})

	// Then the frame decodes with a string-normalized id
	req.Len(h.timeline.Messages, 1)
	req.Equal("42", h.timeline.Messages[0].ID)

	// And a redelivery of the same id as a string is still a duplicate
	h.router.route(context.Background(), contract.Frame{
		Topic: "/queue/eng1",
		Body:  []byte(`{"id":"42","senderId":"u1","recipientId":"eng1","content":"hello"}`),
	})
	req.Len(h.timeline.Messages, 1)
}

func TestRouter_Admin_Feed_Accepts_Numeric_Ids(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "root", domain.RoleAdmin)
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/public",
		Body:  []byte(`{"nickName":"u1","role":"REGULAR","status":"ONLINE"}`),
	})

	// When mirrored traffic arrives with a numeric id
	h.router.route(context.Background(), contract.Frame{
		Topic: "/topic/admin-feed",
		Body:  []byte(`{"id":7,"senderId":"u1","recipientId":"eng1","content":"hi"}`),
	})

	// Then the frame was processed, not dropped: the sender's unread
	// marker moved
	req.Len(h.timeline.Roster, 1)
	req.Equal(1, h.timeline.Roster[0].Unread)
}

func TestRouter_Identity_Rejection_Resets_Session(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "bob", domain.RoleRegular)

	// When the error queue vetoes the nickname
	h.router.route(context.Background(), contract.Frame{
		Topic: "/user/queue/errors",
		Body:  []byte(`nickname "bob" already in use`),
	})

	// Then the session never stays connected and the user is told
	req.False(h.session.Connected())
	req.NotEmpty(h.timeline.Errors)
}

func TestRouter_Logout_Announces_And_Resets(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	h.router.apply(context.Background(), domain.Logout{})

	req.False(h.session.Connected())
	req.Contains(h.transport.sent[len(h.transport.sent)-1], "/app/user.disconnectUser")
}

func TestRouter_Kick_Requires_Admin(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "eng1", domain.RoleEngineer)

	// When an engineer session tries the admin removal
	h.router.apply(context.Background(), domain.KickPeer{PeerID: "u1"})

	// Then the failure is surfaced, not executed
	req.NotEmpty(h.timeline.Errors)
}

func TestRouter_RefreshRoster_Uses_Overview_For_Admin(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "root", domain.RoleAdmin)
	h.directory.overview = []domain.Peer{
		{ID: "u1", Role: domain.RoleRegular, Busy: true},
		{ID: "eng1", Role: domain.RoleEngineer},
	}

	h.router.apply(context.Background(), domain.RefreshRoster{})

	req.Equal(2, h.roster.Len())
	peer, _ := h.roster.Get("u1")
	req.True(peer.Busy)
	req.Len(h.timeline.Roster, 2)
}

func TestRouter_Transport_Loss_Forces_Login_State(t *testing.T) {
	req := require.New(t)
	h := newRouterHarness(t, "bob", domain.RoleRegular)

	// When the frames channel closes while connected
	close(h.transport.frames)
	req.NoError(h.router.Run(context.Background()))

	// Then the session is back to the login state with a visible error
	req.False(h.session.Connected())
	req.NotEmpty(h.timeline.Errors)
}
