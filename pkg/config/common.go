package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
)

// GetEnvOrDefault retrieves an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DefaultRandomChars is the alphabet accepted by the server for OAuth consumer keys.
const DefaultRandomChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

// RandomString returns a string of the given length drawn uniformly from chars.
func RandomString(chars string, length int) (string, error) {
	if chars == "" {
		return "", fmt.Errorf("random string alphabet is empty")
	}
	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

// fileExists reports whether path names an existing regular file
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
