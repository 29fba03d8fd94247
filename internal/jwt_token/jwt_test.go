package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/requestcontext"
)

const (
	issuer  = "http://localhost:3000"
	app1Key = "jwt-secret-app-1-change-in-production"
	app2Key = "jwt-secret-app-2-change-in-production"
)

type keyTable struct {
	keys    map[string]string
	lookups int
}

func (k *keyTable) SigningKey(audience string) ([]byte, bool) {
	k.lookups++
	key, ok := k.keys[audience]
	return []byte(key), ok
}

func newKeys() *keyTable {
	return &keyTable{keys: map[string]string{"app-1": app1Key, "app-2": app2Key}}
}

var user1 = Subject{ID: "1", Username: "user1", Name: "John Doe"}

func signMap(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func Test_SignAndVerify(t *testing.T) {
	now := time.Now()
	signer := NewSigner(issuer, time.Hour)
	token, err := signer.Sign([]byte(app1Key), "app-1", user1, now)
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), now)
	principal, err := NewVerifier(newKeys(), issuer).Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, requestcontext.Principal{
		Subject:  "1",
		Username: "user1",
		Name:     "John Doe",
		Audience: "app-1",
	}, principal)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
	assert.WithinDuration(t, now, claims.IssuedAt.Time, time.Second)
}

func Test_TokenIDsAreUnique(t *testing.T) {
	signer := NewSigner(issuer, time.Hour)
	now := time.Now()
	a, err := signer.Sign([]byte(app1Key), "app-1", user1, now)
	require.NoError(t, err)
	b, err := signer.Sign([]byte(app1Key), "app-1", user1, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func Test_VerifyRejectsCrossAudienceForgery(t *testing.T) {
	// Signed with app-1's key while claiming app-2 as audience.
	token, err := NewSigner(issuer, time.Hour).Sign([]byte(app1Key), "app-2", user1, time.Now())
	require.NoError(t, err)

	_, err = NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func Test_VerifyRejectsWrongKey(t *testing.T) {
	token, err := NewSigner(issuer, time.Hour).Sign([]byte("WRONG-SECRET"), "app-1", user1, time.Now())
	require.NoError(t, err)

	_, err = NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "invalid token"))
}

func Test_VerifyRejectsMissingAudienceWithoutKeyLookup(t *testing.T) {
	keys := newKeys()
	token := signMap(t, jwt.SigningMethodHS256, []byte(app1Key), jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier(keys, "").Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "token has no audience"))
	assert.Zero(t, keys.lookups)
}

func Test_VerifyRejectsMultipleAudiences(t *testing.T) {
	keys := newKeys()
	token := signMap(t, jwt.SigningMethodHS256, []byte(app1Key), jwt.MapClaims{
		"sub": "1",
		"aud": []string{"app-1", "app-2"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier(keys, "").Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "token has more than one audience"))
	assert.Zero(t, keys.lookups)
}

func Test_VerifyAcceptsStringAudience(t *testing.T) {
	token := signMap(t, jwt.SigningMethodHS256, []byte(app2Key), jwt.MapClaims{
		"sub":      "2",
		"username": "user2",
		"name":     "Jane Doe",
		"aud":      "app-2",
		"iss":      issuer,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	principal, err := NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "app-2", principal.Audience)
	assert.Equal(t, "Jane Doe", principal.Name)
}

func Test_VerifyRejectsUnknownAudience(t *testing.T) {
	token, err := NewSigner(issuer, time.Hour).Sign([]byte(app1Key), "app-3", user1, time.Now())
	require.NoError(t, err)

	_, err = NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "unknown audience"))
}

func Test_VerifyRejectsMalformed(t *testing.T) {
	_, err := NewVerifier(newKeys(), issuer).Verify(context.Background(), "invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "malformed token"))
}

func Test_VerifyRejectsExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, err := NewSigner(issuer, time.Hour).Sign([]byte(app1Key), "app-1", user1, issued)
	require.NoError(t, err)

	_, err = NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "token has expired"))
}

func Test_VerifyUsesRequestTime(t *testing.T) {
	issued := time.Now()
	token, err := NewSigner(issuer, time.Minute).Sign([]byte(app1Key), "app-1", user1, issued)
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), issued.Add(2*time.Minute))
	_, err = NewVerifier(newKeys(), issuer).Verify(ctx, token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "token has expired"))
}

func Test_VerifyRequiresExpiry(t *testing.T) {
	token := signMap(t, jwt.SigningMethodHS256, []byte(app1Key), jwt.MapClaims{
		"sub": "1",
		"aud": "app-1",
	})

	_, err := NewVerifier(newKeys(), "").Verify(context.Background(), token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "invalid token"))
}

func Test_VerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "1",
		"aud": "app-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	t.Run("HS512 with the right key", func(t *testing.T) {
		token := signMap(t, jwt.SigningMethodHS512, []byte(app1Key), claims)
		_, err := NewVerifier(newKeys(), "").Verify(context.Background(), token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "invalid token"))
	})

	t.Run("alg none", func(t *testing.T) {
		token := signMap(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims)
		_, err := NewVerifier(newKeys(), "").Verify(context.Background(), token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "invalid token"))
	})
}

func Test_VerifyIssuer(t *testing.T) {
	token, err := NewSigner("http://elsewhere", time.Hour).Sign([]byte(app1Key), "app-1", user1, time.Now())
	require.NoError(t, err)

	t.Run("checked when configured", func(t *testing.T) {
		_, err := NewVerifier(newKeys(), issuer).Verify(context.Background(), token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeForbidden, "invalid token"))
	})

	t.Run("skipped when not configured", func(t *testing.T) {
		_, err := NewVerifier(newKeys(), "").Verify(context.Background(), token)
		require.NoError(t, err)
	})
}
