package credentials

import (
	"encoding/json"
	"fmt"
	"os"
)

const defaultPassword = "password"

// DefaultFile is the built-in demo registry: four users and the two client apps.
func DefaultFile() File {
	return File{
		Users: []UserSeed{
			{ID: "1", Username: "user1", Password: defaultPassword, Name: "John Doe"},
			{ID: "2", Username: "user2", Password: defaultPassword, Name: "Jane Doe"},
			{ID: "3", Username: "user3", Password: defaultPassword, Name: "Maria"},
			{ID: "4", Username: "admin", Password: defaultPassword, Name: "Admin User"},
		},
		Clients: []Client{
			{
				ID:           "app-1",
				Secret:       "secret-1",
				SigningKey:   "jwt-secret-app-1-change-in-production",
				RedirectURIs: []string{"http://localhost:3030/callback"},
			},
			{
				ID:           "app-2",
				Secret:       "secret-2",
				SigningKey:   "jwt-secret-app-2-change-in-production",
				RedirectURIs: []string{"http://localhost:3031/callback"},
			},
		},
	}
}

// ReadFile decodes a credentials file. Unknown fields are rejected.
func ReadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	var file File
	if err := dec.Decode(&file); err != nil {
		return File{}, fmt.Errorf("decode credentials file: %w", err)
	}
	return file, nil
}

// Load builds a registry from path, or from DefaultFile when path is empty.
func Load(path string, cost int) (*Registry, error) {
	file := DefaultFile()
	if path != "" {
		var err error
		if file, err = ReadFile(path); err != nil {
			return nil, err
		}
	}
	return Build(file, cost)
}
