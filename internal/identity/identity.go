// Package identity resolves who is talking to the chat core.
package identity

import "strings"

// Identity is an authenticated user as seen by the chat core.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsStaff     bool   `json:"is_staff"`
}

// Actor is the input of operations that may run with or without a network
// context. Exactly two variants exist: RequestContext and IdentityOnly.
type Actor interface {
	Identity() (Identity, bool)
	Address() string
	isActor()
}

// RequestContext is an actor arriving over the network. User is nil for
// anonymous callers.
type RequestContext struct {
	User       *Identity
	RemoteAddr string
}

func (r RequestContext) Identity() (Identity, bool) {
	if r.User == nil {
		return Identity{}, false
	}
	return *r.User, true
}

func (r RequestContext) Address() string { return r.RemoteAddr }
func (RequestContext) isActor()          {}

// IdentityOnly is an actor known only by identity (internal callers, bridges).
type IdentityOnly struct {
	User Identity
}

func (i IdentityOnly) Identity() (Identity, bool) { return i.User, true }
func (IdentityOnly) Address() string               { return "" }
func (IdentityOnly) isActor()                      {}

// ThrottleKey names the bucket an actor is rate limited under.
func ThrottleKey(a Actor) string {
	if ident, ok := a.Identity(); ok {
		return "user-" + ident.ID
	}
	addr := strings.TrimSpace(a.Address())
	if addr == "" {
		return "unknown"
	}
	return addr
}
