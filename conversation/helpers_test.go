package conversation

import (
	"context"
	"fmt"

	"github.com/mama165/sdk-go/logs"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/feed"
	"support-chat/presence"
	"support-chat/projection"
)

// fakeDirectory records calls and serves canned answers. Handwritten
// fake instead of a generated mock: the assertions are about call
// ordering across collaborators, which reads better this way.
type fakeDirectory struct {
	historyCalls    []string
	history         map[string][]domain.Message
	historyErr      error
	activateCalls   []string
	activateErr     error
	deactivateCalls []string
	deactivateErr   error
	onlineCalls     int
	onlineResp      []domain.Peer
	onlineErr       error
	overviewResp    []domain.Peer
	partnerResp     string
	partnerErr      error
	kickCalls       []string
	kickErr         error
}

func (d *fakeDirectory) OnlineUsers(ctx context.Context, role domain.Role) ([]domain.Peer, error) {
	d.onlineCalls++
	return d.onlineResp, d.onlineErr
}

func (d *fakeDirectory) History(ctx context.Context, a, b string) ([]domain.Message, error) {
	key := a + "|" + b
	d.historyCalls = append(d.historyCalls, key)
	return d.history[key], d.historyErr
}

func (d *fakeDirectory) Activate(ctx context.Context, engineerID, userID string) error {
	d.activateCalls = append(d.activateCalls, engineerID+"|"+userID)
	return d.activateErr
}

func (d *fakeDirectory) Deactivate(ctx context.Context, engineerID, userID string) error {
	d.deactivateCalls = append(d.deactivateCalls, engineerID+"|"+userID)
	return d.deactivateErr
}

func (d *fakeDirectory) Overview(ctx context.Context) ([]domain.Peer, error) {
	return d.overviewResp, nil
}

func (d *fakeDirectory) Partner(ctx context.Context, nick string) (string, error) {
	return d.partnerResp, d.partnerErr
}

func (d *fakeDirectory) Kick(ctx context.Context, nick string) error {
	d.kickCalls = append(d.kickCalls, nick)
	return d.kickErr
}

// fakeTransport records outbound sends; the strategies never read from it.
type fakeTransport struct {
	sent   []string
	frames chan contract.Frame
}

func (t *fakeTransport) Connect(ctx context.Context) error { return nil }
func (t *fakeTransport) Subscribe(topic string) error      { return nil }
func (t *fakeTransport) Send(destination string, payload any) error {
	t.sent = append(t.sent, fmt.Sprintf("%s %v", destination, payload))
	return nil
}
func (t *fakeTransport) Frames() <-chan contract.Frame { return t.frames }
func (t *fakeTransport) Close() error                  { return nil }

// harness wires a connected session with in-memory collaborators.
type harness struct {
	binder    *Binder
	session   *domain.Session
	roster    *presence.Roster
	feed      *feed.Feed
	timeline  *projection.Timeline
	directory *fakeDirectory
	transport *fakeTransport
}

func newHarness(localID string, role domain.Role) *harness {
	log := logs.GetLoggerFromString("ERROR")
	timeline := projection.NewTimeline()
	session := domain.NewSession()
	session.Register(localID, role)
	session.OnRegistered()
	roster := presence.NewRoster(log)
	messageFeed := feed.New(log, timeline)
	directory := &fakeDirectory{history: map[string][]domain.Message{}}
	transport := &fakeTransport{frames: make(chan contract.Frame, 8)}
	binder := NewBinder(log, session, roster, messageFeed, directory, transport, timeline)
	return &harness{
		binder:    binder,
		session:   session,
		roster:    roster,
		feed:      messageFeed,
		timeline:  timeline,
		directory: directory,
		transport: transport,
	}
}
