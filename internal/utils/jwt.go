package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
)

// SessionClaims is the signed payload of a session token.
// IssuedAtMs is compared against user-wide revocation cut-offs, which need
// sub-second resolution that the standard iat claim does not carry.
type SessionClaims struct {
	Plan       domain.Plan `json:"plan"`
	IsAdmin    bool        `json:"is_admin"`
	IssuedAtMs int64       `json:"iat_ms"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses session tokens
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests
func (j *JWTManager) WithClock(now func() time.Time) *JWTManager {
	j.now = now
	return j
}

// TTL returns the session lifetime
func (j *JWTManager) TTL() time.Duration {
	return j.ttl
}

// Generate signs a session token for the given identity snapshot
func (j *JWTManager) Generate(userID string, plan domain.Plan, isAdmin bool) (*domain.SessionToken, *SessionClaims, error) {
	return j.GenerateAfter(userID, plan, isAdmin, 0)
}

// GenerateAfter is Generate with iat_ms forced past afterMs, so the token
// is never covered by a revocation cut-off that already exists
func (j *JWTManager) GenerateAfter(userID string, plan domain.Plan, isAdmin bool, afterMs int64) (*domain.SessionToken, *SessionClaims, error) {
	now := j.now()
	exp := now.Add(j.ttl)
	claims := &SessionClaims{
		Plan:       plan,
		IsAdmin:    isAdmin,
		IssuedAtMs: max(now.UnixMilli(), afterMs+1),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		TokenID:   claims.ID,
		ExpiresAt: exp,
		ExpiresIn: int(j.ttl.Seconds()),
	}, claims, nil
}

// Parse validates signature, shape and expiry. Expired tokens yield
// domain.ErrTokenExpired, anything else domain.ErrTokenInvalid.
func (j *JWTManager) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if claims.Subject == "" || claims.ID == "" || claims.IssuedAtMs == 0 {
		return nil, fmt.Errorf("%w: missing required claims", domain.ErrTokenInvalid)
	}

	return claims, nil
}
