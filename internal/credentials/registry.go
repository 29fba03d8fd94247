// Package credentials is the immutable registry of users and clients shared
// by the identity provider and the weather service.
package credentials

import (
	"errors"
	"fmt"
	"slices"

	"idpweather/internal/platform/secrets"
	dErrors "idpweather/pkg/domain-errors"
)

// Registry answers client, redirect and password lookups. It is built once
// and never mutated, so it needs no locking.
type Registry struct {
	users   map[string]*User
	clients map[string]*Client
	// dummyHash keeps unknown-user logins as slow as wrong-password logins.
	dummyHash string
}

// Build validates the file and hashes every user password at cost.
func Build(file File, cost int) (*Registry, error) {
	r := &Registry{
		users:   make(map[string]*User, len(file.Users)),
		clients: make(map[string]*Client, len(file.Clients)),
	}

	ids := make(map[string]struct{}, len(file.Users))
	for _, seed := range file.Users {
		if seed.ID == "" || seed.Username == "" || seed.Password == "" {
			return nil, fmt.Errorf("user %q: id, username and password are required", seed.Username)
		}
		if _, dup := r.users[seed.Username]; dup {
			return nil, fmt.Errorf("duplicate username %q", seed.Username)
		}
		if _, dup := ids[seed.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %q", seed.ID)
		}
		hash, err := secrets.HashWithCost(seed.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", seed.Username, err)
		}
		ids[seed.ID] = struct{}{}
		r.users[seed.Username] = &User{
			ID:           seed.ID,
			Username:     seed.Username,
			Name:         seed.Name,
			PasswordHash: hash,
		}
	}

	for _, c := range file.Clients {
		if c.ID == "" || c.SigningKey == "" || len(c.RedirectURIs) == 0 {
			return nil, fmt.Errorf("client %q: client_id, signing_key and redirect_uris are required", c.ID)
		}
		if _, dup := r.clients[c.ID]; dup {
			return nil, fmt.Errorf("duplicate client_id %q", c.ID)
		}
		client := c
		client.RedirectURIs = slices.Clone(c.RedirectURIs)
		r.clients[c.ID] = &client
	}

	dummy, err := secrets.HashWithCost("dummy-password-for-timing", cost)
	if err != nil {
		return nil, err
	}
	r.dummyHash = dummy
	return r, nil
}

// Client returns the registration for id or an invalid_client error.
func (r *Registry) Client(id string) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidClient, "unknown client")
	}
	return c, nil
}

// ValidateRedirect checks the client first, then exact redirect membership.
func (r *Registry) ValidateRedirect(clientID, redirectURI string) (*Client, error) {
	c, err := r.Client(clientID)
	if err != nil {
		return nil, err
	}
	if !c.AllowsRedirect(redirectURI) {
		return nil, dErrors.New(dErrors.CodeInvalidRedirectURI, "redirect_uri is not registered for this client")
	}
	return c, nil
}

// AuthenticateUser matches username exactly and verifies the password.
func (r *Registry) AuthenticateUser(username, password string) (*User, error) {
	u, ok := r.users[username]
	if !ok {
		_ = secrets.Verify(password, r.dummyHash)
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
	}
	if err := secrets.Verify(password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
		}
		return nil, err
	}
	return u, nil
}

// ErrSecretMismatch is returned by CheckSecret for a wrong client secret.
var ErrSecretMismatch = errors.New("client secret mismatch")

// CheckSecret compares a presented secret with the registered one.
func (c *Client) CheckSecret(secret string) error {
	if !secrets.Equal(secret, c.Secret) {
		return ErrSecretMismatch
	}
	return nil
}

// SigningKey returns the HMAC key for tokens addressed to audience.
func (r *Registry) SigningKey(audience string) ([]byte, bool) {
	c, ok := r.clients[audience]
	if !ok {
		return nil, false
	}
	return []byte(c.SigningKey), true
}

// ClientIDs lists registered clients in sorted order.
func (r *Registry) ClientIDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
