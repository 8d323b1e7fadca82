// Package domain contains core concepts of the support-chat client.
// It holds identities, peers and messages with their invariants.
// No transport, rendering, or HTTP logic should be added here.
package domain

// Role determines how the local session interprets the shared event stream.
type Role string

const (
	// RoleRegular is an end-user waiting to be contacted by an engineer.
	RoleRegular Role = "REGULAR"
	// RoleEngineer is a support agent picking users from the online list.
	RoleEngineer Role = "ENGINEER"
	// RoleAdmin observes conversations without taking part in them.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RoleEngineer, RoleAdmin:
		return true
	}
	return false
}

// PresenceStatus is the announced connection state of an identity.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
)
