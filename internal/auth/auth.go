// Package auth resolves request credentials into identities and runs
// operations behind that resolution.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Identity is the minimal projection of an authenticated user.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ErrInvalidCredential is returned by a Verifier that does not accept a credential.
var ErrInvalidCredential = errors.New("invalid credential")

// Verifier turns a bearer credential into an identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Chain tries each verifier in order; the first that resolves wins.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, credential string) (*Identity, error) {
	err := ErrInvalidCredential
	for _, v := range c {
		if v == nil {
			continue
		}
		id, verr := v.Verify(ctx, credential)
		if verr == nil && id != nil {
			return id, nil
		}
		if verr != nil && !errors.Is(verr, ErrInvalidCredential) {
			err = verr
		}
	}
	return nil, err
}

type identityKey struct{}

// WithIdentity stores id in ctx. A nil id marks an anonymous request.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
