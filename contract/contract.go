//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"support-chat/domain"
)

// Frame is a raw transport delivery: a topic name and an undecoded body.
// Only the router interprets topics.
type Frame struct {
	Topic string
	Body  []byte
}

// Transport is the pub/sub collaborator boundary. Reconnect and
// handshake mechanics live behind it; the session core only consumes
// frames and publishes application payloads.
//
// Frames is closed when the transport gives up for good. The core treats
// the close as a transport fault and resets to the login state.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string) error
	Send(destination string, payload any) error
	Frames() <-chan Frame
	Close() error
}

// Directory is the HTTP collaborator boundary: everything the server
// knows that the client refetches rather than deriving locally.
type Directory interface {
	// OnlineUsers lists currently online users, optionally filtered for
	// the calling role (the server hides busy users from engineers).
	OnlineUsers(ctx context.Context, role domain.Role) ([]domain.Peer, error)
	// History returns the stored exchange between two identities.
	History(ctx context.Context, a, b string) ([]domain.Message, error)
	// Activate commits an engineer/user pairing server-side.
	Activate(ctx context.Context, engineerID, userID string) error
	// Deactivate releases a pairing. Losing the acknowledgment is safe.
	Deactivate(ctx context.Context, engineerID, userID string) error
	// Overview lists all non-admin users with their busy flag.
	Overview(ctx context.Context) ([]domain.Peer, error)
	// Partner resolves the active counterpart of a busy identity.
	Partner(ctx context.Context, nick string) (string, error)
	// Kick removes a free user. The server refuses while the user is busy.
	Kick(ctx context.Context, nick string) error
}

// Renderer is the external rendering layer. The core tells it what to
// show and never reads anything back.
type Renderer interface {
	ShowConversation(peerID string, history []domain.Message)
	AppendMessage(msg domain.Message)
	ClearConversation()
	ShowRoster(peers []domain.Peer)
	ShowNotice(text string)
	ShowError(text string)
}

// RoleStrategy is the per-role interpretation of the shared event
// stream. Exactly one strategy is active per session, chosen at
// registration time.
type RoleStrategy interface {
	OnPresence(ctx context.Context, id string, role domain.Role, status domain.PresenceStatus)
	OnStatus(ctx context.Context, userID string, busy bool)
	OnMessage(ctx context.Context, msg domain.Message)
	OnLocalSelect(ctx context.Context, peerID string) error
	OnLocalFinish(ctx context.Context) error
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
