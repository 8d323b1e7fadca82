package domain

// Command is a local UI intent funneled through the event loop so that
// no state transition ever races a transport event.
type Command interface {
	CommandName() string
}

// SelectPeer is the local click on a roster entry. For an ENGINEER it
// requests a conversation; for an ADMIN it requests observation.
type SelectPeer struct {
	PeerID string
}

func (SelectPeer) CommandName() string { return "SELECT_PEER" }

// FinishConversation is the engineer's explicit "finish" control.
type FinishConversation struct{}

func (FinishConversation) CommandName() string { return "FINISH_CONVERSATION" }

// ComposeMessage sends content to the currently bound peer.
type ComposeMessage struct {
	Content string
}

func (ComposeMessage) CommandName() string { return "COMPOSE_MESSAGE" }

// KickPeer is the admin's removal of a free user.
type KickPeer struct {
	PeerID string
}

func (KickPeer) CommandName() string { return "KICK_PEER" }

// Logout announces departure and resets the session.
type Logout struct{}

func (Logout) CommandName() string { return "LOGOUT" }

// RefreshRoster asks for a full reconciliation against the server list.
// Posted periodically by the reconciler worker.
type RefreshRoster struct{}

func (RefreshRoster) CommandName() string { return "REFRESH_ROSTER" }
