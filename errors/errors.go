package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrNotConnected       = fmt.Errorf("session is not connected")
	ErrNicknameTaken      = fmt.Errorf("nickname already online")
	ErrInvalidPayload     = fmt.Errorf("invalid event payload")
	ErrUnknownTopic       = fmt.Errorf("unknown transport topic")
	ErrPeerNotBusy        = fmt.Errorf("peer has no active conversation to observe")
	ErrPeerBusy           = fmt.Errorf("peer is engaged in an active conversation")
	ErrActivationFailed   = fmt.Errorf("chat-room activation refused")
	ErrStaleSelection     = fmt.Errorf("selection superseded by a later local action")
	ErrNoActivePeer       = fmt.Errorf("no conversation is currently bound")
	ErrSelfSelection      = fmt.Errorf("cannot select own identity")
	ErrUnsupportedForRole = fmt.Errorf("action not available for this role")
)
