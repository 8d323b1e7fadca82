package domain

// Phase is the lifecycle position of the local session.
type Phase string

const (
	PhaseUnconnected Phase = "UNCONNECTED"
	PhaseConnecting  Phase = "CONNECTING"
	PhaseConnected   Phase = "CONNECTED"
)

// Session is the single source of truth for the local identity and its
// currently bound conversation partner. It is exclusively owned and
// mutated by the event loop; no internal locking is needed.
//
// Invariant: ActivePeer is non-empty only while the session is connected.
// A REGULAR session starts bound to itself (self-addressed placeholder)
// until an engineer makes contact.
type Session struct {
	localID    string
	role       Role
	activePeer string
	phase      Phase
}

func NewSession() *Session {
	return &Session{phase: PhaseUnconnected}
}

// Register sets the identity triple and moves the session to connecting.
// The session is not usable until OnRegistered confirms the handshake.
func (s *Session) Register(localID string, role Role) {
	s.localID = localID
	s.role = role
	s.activePeer = ""
	s.phase = PhaseConnecting
}

// OnRegistered marks the handshake as successful. A REGULAR session gets
// its self-addressed placeholder binding so the conversation surface has
// a stable target before any engineer shows up.
func (s *Session) OnRegistered() {
	s.phase = PhaseConnected
	if s.role == RoleRegular {
		s.activePeer = s.localID
	}
}

// Bind points the session at a peer. It reports whether the binding
// actually changed; re-binding to the current peer is a silent no-op.
// Binding while unconnected is refused to preserve the invariant.
func (s *Session) Bind(peerID string) bool {
	if s.phase != PhaseConnected || peerID == "" || peerID == s.activePeer {
		return false
	}
	s.activePeer = peerID
	return true
}

// Unbind clears the current binding. A REGULAR session falls back to its
// self-addressed placeholder instead of an empty binding.
func (s *Session) Unbind() bool {
	fallback := ""
	if s.role == RoleRegular && s.phase == PhaseConnected {
		fallback = s.localID
	}
	if s.activePeer == fallback {
		return false
	}
	s.activePeer = fallback
	return true
}

// Reset returns the session to the unconnected login state. Used on
// logout, forced disconnect, and identity rejection.
func (s *Session) Reset() {
	s.activePeer = ""
	s.phase = PhaseUnconnected
}

func (s *Session) LocalID() string    { return s.localID }
func (s *Session) Role() Role         { return s.role }
func (s *Session) ActivePeer() string { return s.activePeer }
func (s *Session) Phase() Phase       { return s.phase }
func (s *Session) Connected() bool    { return s.phase == PhaseConnected }

// BoundTo reports whether peerID is the currently displayed counterpart.
// The REGULAR placeholder does not count as a real conversation.
func (s *Session) BoundTo(peerID string) bool {
	return s.activePeer != "" && s.activePeer == peerID && s.activePeer != s.localID
}

// HasConversation reports whether a real (non-placeholder) peer is bound.
func (s *Session) HasConversation() bool {
	return s.activePeer != "" && s.activePeer != s.localID
}
