package auth

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/circles/backend/internal/repositories"
)

// TokenVerifier is the part of the Firebase auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens of users linked to a local account.
type FirebaseVerifier struct {
	client TokenVerifier
	users  repositories.UserRepository
}

// NewFirebaseVerifier creates a FirebaseVerifier.
func NewFirebaseVerifier(client TokenVerifier, users repositories.UserRepository) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, users: users}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if v.client == nil {
		return nil, ErrInvalidCredential
	}
	token, err := v.client.VerifyIDToken(ctx, credential)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	user, err := v.users.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	return IdentityOf(user), nil
}
