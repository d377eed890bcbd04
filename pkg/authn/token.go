package authn

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

const issuer = "saasgate"

// Token audiences. A token is only accepted for the purpose it was issued for.
const (
	AudienceAccess = "saasgate:auth"
	AudienceVerify = "saasgate:verify"
	AudienceReset  = "saasgate:reset"
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims issued by saasgate.
type Claims struct {
	Email               string `json:"email,omitempty"`
	PasswordFingerprint string `json:"pwd,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a user ID.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Tokens issues and validates HS256 tokens.
type Tokens struct {
	secret    []byte
	accessTTL time.Duration
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// TokenLifetimes configures how long each kind of token stays valid.
type TokenLifetimes struct {
	Access time.Duration
	Verify time.Duration
	Reset  time.Duration
}

// NewTokens creates a token issuer keyed by secret.
func NewTokens(secret string, lifetimes TokenLifetimes) *Tokens {
	return &Tokens{
		secret:    []byte(secret),
		accessTTL: lifetimes.Access,
		verifyTTL: lifetimes.Verify,
		resetTTL:  lifetimes.Reset,
		now:       time.Now,
	}
}

// AccessTTL returns the lifetime of access tokens.
func (t *Tokens) AccessTTL() time.Duration {
	return t.accessTTL
}

// IssueAccess signs an access token for u.
func (t *Tokens) IssueAccess(u *model.User) (string, *Claims, error) {
	claims := t.claims(u, AudienceAccess, t.accessTTL)
	signed, err := t.sign(claims)
	return signed, claims, err
}

// ParseAccess validates an access token.
func (t *Tokens) ParseAccess(token string) (*Claims, error) {
	return t.parse(token, AudienceAccess)
}

// IssueVerify signs an email verification token for u.
func (t *Tokens) IssueVerify(u *model.User) (string, error) {
	claims := t.claims(u, AudienceVerify, t.verifyTTL)
	claims.Email = u.Email
	return t.sign(claims)
}

// ParseVerify validates an email verification token.
func (t *Tokens) ParseVerify(token string) (*Claims, error) {
	claims, err := t.parse(token, AudienceVerify)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueReset signs a reset-password token bound to u's current password.
func (t *Tokens) IssueReset(u *model.User) (string, error) {
	claims := t.claims(u, AudienceReset, t.resetTTL)
	claims.PasswordFingerprint = PasswordFingerprint(u.HashedPassword)
	return t.sign(claims)
}

// ParseReset validates a reset-password token. The caller must still check
// MatchesPassword against the user the token names.
func (t *Tokens) ParseReset(token string) (*Claims, error) {
	claims, err := t.parse(token, AudienceReset)
	if err != nil {
		return nil, err
	}
	if claims.PasswordFingerprint == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// MatchesPassword reports whether a reset token was issued for the
// password u currently has. Once the password changes the token is void.
func (c *Claims) MatchesPassword(u *model.User) bool {
	return c.PasswordFingerprint == PasswordFingerprint(u.HashedPassword)
}

// PasswordFingerprint is a short digest of a password hash.
func PasswordFingerprint(hashedPassword string) string {
	sum := sha256.Sum256([]byte(hashedPassword))
	return hex.EncodeToString(sum[:8])
}

func (t *Tokens) claims(u *model.User, audience string, ttl time.Duration) *Claims {
	now := t.now().UTC()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
}

func (t *Tokens) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, audience string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
