// Package auth issues and verifies PASETO v4.local operator tokens, which
// guard the mutating endpoints of the API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64

	keyFileName = "auth.key"
)

// KeyPath returns where the operator token key lives under dataPath.
func KeyPath(dataPath string) string {
	return filepath.Join(dataPath, keyFileName)
}

// LoadOrGenerateKey loads the hex-encoded token key from <dataPath>/auth.key,
// generating and saving a new one if the file does not exist.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := KeyPath(dataPath)

	//#nosec G304 -- Auth key path is derived from the configured data path
	keyBytes, err := os.ReadFile(keyPath)
	if err == nil {
		return decodeKey(strings.TrimSpace(string(keyBytes)))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate auth key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save auth key: %w", err)
	}
	return key, nil
}

// LoadKey loads an existing key without generating one.
func LoadKey(dataPath string) ([]byte, error) {
	//#nosec G304 -- Auth key path is derived from the configured data path
	keyBytes, err := os.ReadFile(KeyPath(dataPath))
	if err != nil {
		return nil, fmt.Errorf("read auth key: %w", err)
	}
	return decodeKey(strings.TrimSpace(string(keyBytes)))
}

func decodeKey(keyHex string) ([]byte, error) {
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: not valid hex: %w", err)
	}
	return key, nil
}
