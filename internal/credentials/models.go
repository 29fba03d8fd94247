package credentials

import "slices"

// Client is a registered relying party. SigningKey is the HMAC key for
// tokens whose audience is this client.
type Client struct {
	ID           string   `json:"client_id"`
	Secret       string   `json:"client_secret"`
	SigningKey   string   `json:"signing_key"`
	RedirectURIs []string `json:"redirect_uris"`
}

// AllowsRedirect reports exact membership in the redirect allow-list.
func (c *Client) AllowsRedirect(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// User is a resource owner. Only the password hash is retained.
type User struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string
}

// UserSeed is the on-disk and built-in form of a user.
type UserSeed struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// File is the JSON layout accepted by CREDENTIALS_FILE.
type File struct {
	Users   []UserSeed `json:"users"`
	Clients []Client   `json:"clients"`
}
