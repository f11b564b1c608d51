package utils // package utils provides the token service and password hashing helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/fitness-tracker/internal/model"
)

var (
	// ErrSigningKeyMissing means the process has no JWT secret. Callers must
	// fail closed on it instead of skipping verification.
	ErrSigningKeyMissing = errors.New("jwt signing secret is not configured")
	// ErrTokenInvalid covers every verification failure: bad signature,
	// malformed payload, expiry, or a user id that is not a number.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the token payload. ID is a pointer so a missing claim can be
// told apart from user id 0, and a non-numeric id fails to decode.
type Claims struct {
	ID       *uint64 `json:"id"`
	Username string  `json:"username"`
	Admin    bool    `json:"admin"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. It holds no state
// besides its configuration, so there is nothing to revoke.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Configured reports whether a signing secret is present.
func (s *TokenService) Configured() bool { return len(s.secret) > 0 }

// TTL is the lifetime given to issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for id that expires after the configured lifetime.
// A zero lifetime yields a token that is already expired.
func (s *TokenService) Issue(id model.Identity) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	userID := id.UserID
	claims := Claims{
		ID:       &userID,
		Username: id.Username,
		Admin:    id.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry of raw and returns the identity
// it carries.
func (s *TokenService) Verify(raw string) (model.Identity, error) {
	if !s.Configured() {
		return model.Identity{}, ErrSigningKeyMissing
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return model.Identity{}, ErrTokenInvalid
	}
	if claims.ID == nil {
		return model.Identity{}, ErrTokenInvalid
	}
	return model.Identity{UserID: *claims.ID, Username: claims.Username, Admin: claims.Admin}, nil
}
