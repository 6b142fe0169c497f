// Package auth guards the HTTP API with a single bcrypt-hashed credential.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

func HashPassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return "", fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	trimmedPassword := strings.TrimSpace(password)
	trimmedHash := strings.TrimSpace(hash)
	if trimmedPassword == "" || trimmedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(trimmedHash), []byte(trimmedPassword)) == nil
}

func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Credentials is the one account allowed to call the API.
type Credentials struct {
	username string
	hash     string
}

func NewCredentials(username, passwordHash string) (*Credentials, error) {
	user := NormalizeUsername(username)
	if user == "" {
		return nil, fmt.Errorf("username is required")
	}
	hash := strings.TrimSpace(passwordHash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("password hash is not a bcrypt hash: %w", err)
	}
	return &Credentials{username: user, hash: hash}, nil
}

// Verify checks a username/password pair. The bcrypt comparison runs even for
// unknown usernames so both cases take the same time.
func (c *Credentials) Verify(username, password string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(NormalizeUsername(username)), []byte(c.username)) == 1
	passwordMatch := VerifyPassword(password, c.hash)
	return userMatch && passwordMatch
}
