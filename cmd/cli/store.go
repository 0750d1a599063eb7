package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/talentgate/internal/token"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var errLoginRequired = errors.New("no valid token (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "talentgate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "talentgate")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

// saveToken stores tok with its unverified expiry. The CLI only uses the
// expiry to skip requests that would be rejected anyway.
func saveToken(tok string) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	exp, ok := token.ExpiresAt(tok)
	if !ok {
		exp = time.Now().Add(time.Hour)
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: tok, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(), b, 0o600)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", errLoginRequired
	}
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errLoginRequired
	}
	return tf.AccessToken, nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
