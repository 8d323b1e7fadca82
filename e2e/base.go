package e2e

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"support-chat/conversation"
	"support-chat/domain"
	"support-chat/feed"
	"support-chat/presence"
	"support-chat/projection"
	"support-chat/runtime"
	"support-chat/runtime/workers"
)

// BaseHubSuite owns the hub and assembles full clients on top of it.
// Each client runs its event loop under a supervisor, exactly like the
// binary does.
type BaseHubSuite struct {
	suite.Suite
	Config Config
	Log    *slog.Logger
	Hub    *Hub
}

func (s *BaseHubSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
	s.Log = logs.GetLoggerFromString(cfg.LogLevel)
}

func (s *BaseHubSuite) SetupTest() {
	s.Hub = NewHub()
}

// WaitFor polls a condition until the step timeout elapses. Every
// cross-client assertion goes through here: delivery order between
// loops is guaranteed per client, not across clients.
func (s *BaseHubSuite) WaitFor(msg string, cond func() bool) {
	s.Require().Eventually(cond, s.Config.StepTimeout, s.Config.PollInterval, msg)
}

type testClient struct {
	ID     string
	Router *runtime.Router
	View   *view
}

// StartClient logs a full client in and runs its loop until test
// cleanup.
func (s *BaseHubSuite) StartClient(id string, role domain.Role) *testClient {
	transport := s.Hub.Client(s.Config.FrameBuffer)
	v := newView()
	session := domain.NewSession()
	roster := presence.NewRoster(s.Log)
	messageFeed := feed.New(s.Log, v)
	binder := conversation.NewBinder(s.Log, session, roster, messageFeed, s.Hub, transport, v)
	router := runtime.NewRouter(s.Log, session, roster, messageFeed, binder, transport, s.Hub, v, s.Config.CommandBuffer)

	s.Require().NoError(router.Login(context.Background(), id, role))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		workers.NewSupervisor(s.Log).Add(router).Run(ctx)
		close(done)
	}()
	s.T().Cleanup(func() {
		cancel()
		<-done
		_ = transport.Close()
	})
	return &testClient{ID: id, Router: router, View: v}
}

// view wraps the headless timeline with a lock so scenario goroutines
// can read what a client's loop rendered.
type view struct {
	mu       sync.Mutex
	timeline *projection.Timeline
}

func newView() *view {
	return &view{timeline: projection.NewTimeline()}
}

func (v *view) ShowConversation(peerID string, history []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.ShowConversation(peerID, history)
}

func (v *view) AppendMessage(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.AppendMessage(msg)
}

func (v *view) ClearConversation() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.ClearConversation()
}

func (v *view) ShowRoster(peers []domain.Peer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.ShowRoster(peers)
}

func (v *view) ShowNotice(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.ShowNotice(text)
}

func (v *view) ShowError(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeline.ShowError(text)
}

func (v *view) Peer() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeline.Peer
}

func (v *view) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Message(nil), v.timeline.Messages...)
}

func (v *view) LastContent() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg, ok := v.timeline.LastMessage()
	if !ok {
		return ""
	}
	return msg.Content
}

func (v *view) RosterHas(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.timeline.Roster {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (v *view) RosterBusy(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.timeline.Roster {
		if p.ID == id {
			return p.Busy
		}
	}
	return false
}

func (v *view) RosterUnread(id string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.timeline.Roster {
		if p.ID == id {
			return p.Unread
		}
	}
	return 0
}

func (v *view) Notices() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.timeline.Notices...)
}

func (v *view) Errors() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.timeline.Errors...)
}
