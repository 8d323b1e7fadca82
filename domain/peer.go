package domain

// Peer is any other identity known to the local session.
// Busy mirrors the server-asserted flag meaning the peer is currently
// engaged in an active conversation elsewhere.
type Peer struct {
	ID     string
	Role   Role
	Online bool
	Busy   bool
	Unread int
}
