package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultAPIURL = "http://localhost:8080"

const tokenFileName = ".audit_token"

// APIURL returns the base URL for the Audit Trail API.
// It can be overridden with the AUDIT_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("AUDIT_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, tokenFileName), nil
}

// SaveToken stores the JWT in the user's home directory for later commands.
func SaveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0600)
}

// ReadToken returns the locally stored JWT, or an error if none is saved.
func ReadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("no stored token (run 'audit login' first): %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// RemoveToken deletes the locally stored JWT. Missing file is not an error.
func RemoveToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
