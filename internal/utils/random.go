package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks a bearer value as an API key rather than a session token
const APIKeyPrefix = "imk_"

// apiKeyDisplayLen is how much of a raw key is kept for display
const apiKeyDisplayLen = len(APIKeyPrefix) + 6

// RandomToken returns n random bytes encoded as unpadded base64url
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest stored in place of a raw secret
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey returns a new raw API key and the prefix shown in listings
func GenerateAPIKey() (raw, displayPrefix string, err error) {
	secret, err := RandomToken(32)
	if err != nil {
		return "", "", err
	}
	raw = APIKeyPrefix + secret
	return raw, raw[:apiKeyDisplayLen], nil
}

// IsAPIKey reports whether a bearer value has the API key format
func IsAPIKey(bearer string) bool {
	return strings.HasPrefix(bearer, APIKeyPrefix)
}
