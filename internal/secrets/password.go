package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "gigmaps"
)

var ErrNotFound = errors.New("data source key not found (set it in keychain or via env)")

func GetDataSourceKey(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		key, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
	}

	return "", ErrNotFound
}

func SetDataSourceKey(keyringAccount string, key string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, key)
}

func DeleteDataSourceKey(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// ResolveDataSourceKey returns the configured key, falling back to the
// keychain when config and env left it empty.
func ResolveDataSourceKey(configured, keyringAccount string) string {
	if k := strings.TrimSpace(configured); k != "" {
		return k
	}
	k, err := GetDataSourceKey(keyringAccount)
	if err != nil {
		return ""
	}
	return k
}
