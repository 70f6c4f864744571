package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
)

// Issuer signs and parses the service's own HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue generates a JWT token for a given user
func (i *Issuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse validates token and returns its claims.
func (i *Issuer) Parse(token string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// JWTVerifier accepts tokens from an Issuer whose user still exists.
type JWTVerifier struct {
	issuer *Issuer
	users  repositories.UserRepository
}

// NewJWTVerifier creates a JWTVerifier.
func NewJWTVerifier(issuer *Issuer, users repositories.UserRepository) *JWTVerifier {
	return &JWTVerifier{issuer: issuer, users: users}
}

func (v *JWTVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims, err := v.issuer.Parse(credential)
	if err != nil {
		return nil, err
	}
	user, err := v.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	return IdentityOf(user), nil
}

// IdentityOf projects a user onto an Identity.
func IdentityOf(user *models.User) *Identity {
	return &Identity{ID: user.ID, Username: user.Username, Email: user.Email}
}
