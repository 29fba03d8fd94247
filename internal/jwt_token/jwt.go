package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims for our access tokens.
// sub carries the user id and aud the client id the token was issued to.
type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Subject is the resource owner a token is issued for.
type Subject struct {
	ID       string
	Username string
	Name     string
}

// Signer mints HS256 access tokens. The key is chosen per call because each
// audience has its own.
type Signer struct {
	issuer string
	ttl    time.Duration
}

func NewSigner(issuer string, ttl time.Duration) *Signer {
	return &Signer{issuer: issuer, ttl: ttl}
}

// TTL is the lifetime given to every token.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for subject addressed to audience, valid from now for TTL.
func (s *Signer) Sign(key []byte, audience string, subject Subject, now time.Time) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: subject.Username,
		Name:     subject.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Audience:  jwt.ClaimStrings{audience},
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(key)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}
