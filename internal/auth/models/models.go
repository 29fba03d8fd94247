package models

import "time"

// GrantAuthorizationCode is the only grant the token endpoint accepts.
const GrantAuthorizationCode = "authorization_code"

// TokenTypeBearer is returned in every token response.
const TokenTypeBearer = "Bearer"

// BoundUser is the identity snapshot carried by codes and sessions.
type BoundUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AuthorizationCode is a single-use grant bound to one client, redirect URI
// and user.
type AuthorizationCode struct {
	Code        string    `json:"code"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	User        BoundUser `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether now is past the absolute expiry.
func (c AuthorizationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session lets a returning browser skip the login form.
type Session struct {
	ID        string    `json:"id"`
	User      BoundUser `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether now is past the session expiry.
func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthorizeRequest carries the /authorize query and the browser's session handle.
type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	State        string
	SessionID    string
}

// LoginForm is what the login page needs to post back.
type LoginForm struct {
	ClientID    string
	RedirectURI string
	State       string
	Error       string
}

// AuthorizeResult is either a redirect carrying a code or a login form.
type AuthorizeResult struct {
	RedirectURL string
	Login       *LoginForm
}

// LoginRequest is the submitted login form.
type LoginRequest struct {
	Username    string
	Password    string
	ClientID    string
	RedirectURI string
	State       string
}

// LoginResult holds the code redirect and the new IdP session.
type LoginResult struct {
	RedirectURL string
	Session     Session
}

// TokenRequest is the token endpoint input after transport decoding.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`

	// CredentialsConflict is set when HTTP Basic credentials name a
	// different client than the body's client_id.
	CredentialsConflict bool `json:"-"`
}

// TokenResult is the token endpoint success body.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
