package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

const testSecret = "table-secret"

func TestAllowAllSanitizes(t *testing.T) {
	id, err := AllowAll{}.Verify(protocol.Hello{Identity: "  al\x00ice\n "})
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	id, err = AllowAll{}.Verify(protocol.Hello{Identity: strings.Repeat("x", 100)})
	require.NoError(t, err)
	assert.Len(t, id, maxIdentityLen)
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier(testSecret, "uno")

	tok, err := IssueToken(testSecret, "uno", "bob", time.Minute)
	require.NoError(t, err)
	id, err := v.Verify(protocol.Hello{Identity: "ignored", Token: tok})
	require.NoError(t, err)
	assert.Equal(t, "bob", id)

	cases := map[string]string{
		"missing": "",
		"garbage": "not.a.token",
	}
	wrongKey, err := IssueToken("other-secret", "uno", "bob", time.Minute)
	require.NoError(t, err)
	cases["wrong key"] = wrongKey
	expired, err := IssueToken(testSecret, "uno", "bob", -time.Minute)
	require.NoError(t, err)
	cases["expired"] = expired
	wrongIssuer, err := IssueToken(testSecret, "poker", "bob", time.Minute)
	require.NoError(t, err)
	cases["wrong issuer"] = wrongIssuer

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "bob", Issuer: "uno"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	cases["no expiry"] = noExp

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(protocol.Hello{Token: token})
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestJWTVerifierRejectsOtherAlgorithms(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	claims := jwt.RegisteredClaims{Subject: "eve", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(protocol.Hello{Token: tok})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPassphraseVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	v, err := NewPassphraseVerifier(string(hash))
	require.NoError(t, err)

	_, err = v.Verify(protocol.Hello{Passphrase: "open sesame"})
	assert.NoError(t, err)
	_, err = v.Verify(protocol.Hello{Passphrase: "open barley"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = v.Verify(protocol.Hello{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewPassphraseVerifier("plaintext")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	pv, err := NewPassphraseVerifier(string(hash))
	require.NoError(t, err)
	chain := Chain{pv, NewJWTVerifier(testSecret, "")}

	tok, err := IssueToken(testSecret, "", "carol", time.Minute)
	require.NoError(t, err)

	id, err := chain.Verify(protocol.Hello{Identity: "c", Token: tok, Passphrase: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "carol", id, "token subject overrides the requested name")

	_, err = chain.Verify(protocol.Hello{Token: tok, Passphrase: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	id, err = Chain{pv}.Verify(protocol.Hello{Identity: "dave", Passphrase: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "dave", id)
}
