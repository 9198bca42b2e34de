// Package auth checks the credentials a client presents in its hello message.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

// ErrUnauthorized is returned when a hello's credentials are missing or wrong.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier checks a hello and returns the identity to seat the client under.
// An empty identity means "use the default name".
type Verifier interface {
	Verify(h protocol.Hello) (string, error)
}

// AllowAll accepts every client under the identity it asked for.
type AllowAll struct{}

func (AllowAll) Verify(h protocol.Hello) (string, error) { return sanitizeIdentity(h.Identity), nil }

// Chain requires every verifier to pass. The last non-empty identity wins, so
// put the verifier that knows the real name (a token) last.
type Chain []Verifier

func (c Chain) Verify(h protocol.Hello) (string, error) {
	identity := sanitizeIdentity(h.Identity)
	for _, v := range c {
		id, err := v.Verify(h)
		if err != nil {
			return "", err
		}
		if id != "" {
			identity = id
		}
	}
	return identity, nil
}

// JWTVerifier accepts HS256 tokens signed with a shared secret; the token's
// subject becomes the seat identity.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier returns a verifier for tokens signed with secret. When issuer
// is non-empty the token's iss claim must match it.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(h protocol.Hello) (string, error) {
	if h.Token == "" {
		return "", fmt.Errorf("%w: token required", ErrUnauthorized)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	tok, err := jwt.ParseWithClaims(h.Token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return sanitizeIdentity(claims.Subject), nil
}

// IssueToken signs a token for identity, valid for ttl.
func IssueToken(secret, issuer, identity string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", errors.New("identity is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// PassphraseVerifier guards a private table with a bcrypt-hashed passphrase.
type PassphraseVerifier struct {
	hash []byte
}

// NewPassphraseVerifier takes the bcrypt hash of the table passphrase.
func NewPassphraseVerifier(hash string) (*PassphraseVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("passphrase hash: %w", err)
	}
	return &PassphraseVerifier{hash: []byte(hash)}, nil
}

// HashPassphrase returns the bcrypt hash to configure a private table with.
func HashPassphrase(passphrase string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (v *PassphraseVerifier) Verify(h protocol.Hello) (string, error) {
	if h.Passphrase == "" {
		return "", fmt.Errorf("%w: passphrase required", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(h.Passphrase)); err != nil {
		return "", fmt.Errorf("%w: wrong passphrase", ErrUnauthorized)
	}
	return "", nil
}

const maxIdentityLen = 32

// sanitizeIdentity trims whitespace and control characters and caps the length.
func sanitizeIdentity(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if r := []rune(s); len(r) > maxIdentityLen {
		s = string(r[:maxIdentityLen])
	}
	return s
}
