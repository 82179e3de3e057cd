package config

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "jobtriage-engine"
	scoringKeyName = "scoring_api_key"

	// EnvScoringAPIKey overrides the keychain, for headless installs.
	EnvScoringAPIKey = "JOBTRIAGE_SCORING_API_KEY"
)

// ScoringAPIKey returns the provider API key, preferring the environment over
// the OS keychain.
func ScoringAPIKey() (string, error) {
	if v := os.Getenv(EnvScoringAPIKey); v != "" {
		return v, nil
	}
	v, err := keyring.Get(keyringService, scoringKeyName)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

func SetScoringAPIKey(key string) error {
	return keyring.Set(keyringService, scoringKeyName, key)
}

func DeleteScoringAPIKey() error {
	err := keyring.Delete(keyringService, scoringKeyName)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
