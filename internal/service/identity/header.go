// Package identity resolves the caller's user from a request. Real
// authentication lives in a collaborator service; this core only needs the
// id and display name it forwards.
package identity

import (
	"net/http"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
)

// Header names populated by the fronting auth proxy.
const (
	UserIDHeader      = "X-User-Id"
	DisplayNameHeader = "X-Display-Name"
)

// HeaderIdentity trusts identity headers set by the gateway.
type HeaderIdentity struct{}

// NewHeaderIdentity creates the header-based resolver.
func NewHeaderIdentity() drepo.Identity {
	return HeaderIdentity{}
}

// Resolve returns the caller's id, or models.ErrNotAuthenticated when the
// request carries none.
func (HeaderIdentity) Resolve(r *http.Request) (string, string, error) {
	uid := r.Header.Get(UserIDHeader)
	if uid == "" {
		return "", "", models.ErrNotAuthenticated
	}
	name := r.Header.Get(DisplayNameHeader)
	if name == "" {
		name = "Anonymous"
	}
	return uid, name, nil
}
