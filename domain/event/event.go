// Package event defines the typed events the session core reacts to.
// Transport frames are decoded into these types by the router; local UI
// intents enter the same loop as commands (see domain.Command).
package event

import (
	"support-chat/domain"
)

type Type string

const (
	PresenceChangedType  Type = "PRESENCE_CHANGED"
	BusyChangedType      Type = "BUSY_CHANGED"
	MessageReceivedType  Type = "MESSAGE_RECEIVED"
	IdentityRejectedType Type = "IDENTITY_REJECTED"
	TransportLostType    Type = "TRANSPORT_LOST"
)

// Event is anything the single-threaded loop processes to completion.
type Event interface {
	Kind() Type
}

// PresenceChanged mirrors the public broadcast channel: an identity came
// online or went away.
type PresenceChanged struct {
	ID     string
	Role   domain.Role
	Status domain.PresenceStatus
}

func (PresenceChanged) Kind() Type { return PresenceChangedType }

// BusyChanged mirrors the status channel: a peer entered or left an
// active conversation somewhere.
type BusyChanged struct {
	UserID string
	Busy   bool
}

func (BusyChanged) Kind() Type { return BusyChangedType }

// MessageReceived carries an inbound chat message, either from the
// personal queue or, for admins, from the mirror feed.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) Kind() Type { return MessageReceivedType }

// IdentityRejected arrives on the personal error queue when the chosen
// nickname is already online. The session never reaches connected.
type IdentityRejected struct {
	Reason string
}

func (IdentityRejected) Kind() Type { return IdentityRejectedType }

// TransportLost signals an unrecoverable transport fault. The session
// resets and the user must log in again.
type TransportLost struct{}

func (TransportLost) Kind() Type { return TransportLostType }
