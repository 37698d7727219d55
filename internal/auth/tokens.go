package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifedrop/pkg/types"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	claimEmail = "email"
	claimRole  = "role"
)

// Denylist records token ids that were logged out before they expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenService issues and verifies HS256 bearer tokens valid for one
// calendar day.
type TokenService struct {
	key      []byte
	denylist Denylist
	now      func() time.Time
}

func NewTokenService(secret []byte, denylist Denylist) *TokenService {
	return &TokenService{
		key:      secret,
		denylist: denylist,
		now:      time.Now,
	}
}

func (s *TokenService) Issue(userID, email string, role types.Role) (string, error) {
	now := s.now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.AddDate(0, 0, 1)).
		Claim(claimEmail, email).
		Claim(claimRole, string(role)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify returns the caller encoded in raw. Any signature, expiry, claim or
// denylist failure is reported as types.ErrTokenInvalid.
func (s *TokenService) Verify(ctx context.Context, raw string) (types.Caller, error) {
	if raw == "" {
		return types.Caller{}, types.ErrTokenMissing
	}

	token, err := s.parse(raw)
	if err != nil {
		return types.Caller{}, err
	}

	if s.denylist != nil {
		tokenID, _ := token.JwtID()
		revoked, err := s.denylist.IsRevoked(ctx, tokenID)
		if err != nil {
			return types.Caller{}, fmt.Errorf("failed to check token denylist: %w", err)
		}
		if revoked {
			return types.Caller{}, types.ErrTokenInvalid
		}
	}

	userID, _ := token.Subject()

	var email, role string
	if err := token.Get(claimEmail, &email); err != nil {
		return types.Caller{}, types.ErrTokenInvalid
	}
	if err := token.Get(claimRole, &role); err != nil {
		return types.Caller{}, types.ErrTokenInvalid
	}

	return types.Caller{UserID: userID, Email: email, Role: types.Role(role)}, nil
}

// Revoke denylists raw until its own expiry. Revoking an already invalid
// token is reported as types.ErrTokenInvalid.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return types.ErrTokenMissing
	}
	if s.denylist == nil {
		return errors.New("token denylist is not configured")
	}

	token, err := s.parse(raw)
	if err != nil {
		return err
	}

	tokenID, _ := token.JwtID()
	expiresAt, _ := token.Expiration()

	if err := s.denylist.Revoke(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

func (s *TokenService) parse(raw string) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), s.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return nil, types.ErrTokenInvalid
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, types.ErrTokenInvalid
	}

	tokenID, ok := token.JwtID()
	if !ok || tokenID == "" {
		return nil, types.ErrTokenInvalid
	}

	return token, nil
}
