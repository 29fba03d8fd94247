package jwttoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/requestcontext"
)

// KeyResolver maps a token audience to the key that must have signed it.
type KeyResolver interface {
	SigningKey(audience string) ([]byte, bool)
}

// Verifier checks access tokens in two phases. The audience is read from the
// unverified payload only to pick a key; nothing else from that parse is
// trusted. The second parse verifies signature, expiry and audience with
// that key.
type Verifier struct {
	keys   KeyResolver
	issuer string
}

// NewVerifier builds a verifier. An empty issuer disables the iss check.
func NewVerifier(keys KeyResolver, issuer string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer}
}

// Audience extracts the single audience from an unverified token.
func (v *Verifier) Audience(tokenString string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeForbidden, "malformed token")
	}
	switch len(claims.Audience) {
	case 0:
		return "", dErrors.New(dErrors.CodeForbidden, "token has no audience")
	case 1:
	default:
		return "", dErrors.New(dErrors.CodeForbidden, "token has more than one audience")
	}
	if claims.Audience[0] == "" {
		return "", dErrors.New(dErrors.CodeForbidden, "token has no audience")
	}
	return claims.Audience[0], nil
}

// Verify returns the principal proven by tokenString.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (requestcontext.Principal, error) {
	audience, err := v.Audience(tokenString)
	if err != nil {
		return requestcontext.Principal{}, err
	}
	key, ok := v.keys.SigningKey(audience)
	if !ok {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeForbidden, "unknown audience")
	}

	now := requestcontext.Now(ctx)
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestcontext.Principal{}, dErrors.Wrap(err, dErrors.CodeForbidden, "token has expired")
		}
		return requestcontext.Principal{}, dErrors.Wrap(err, dErrors.CodeForbidden, "invalid token")
	}
	if !parsed.Valid {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeForbidden, "invalid token")
	}

	return requestcontext.Principal{
		Subject:  claims.Subject,
		Username: claims.Username,
		Name:     claims.Name,
		Audience: audience,
	}, nil
}
