package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	PortIDPrefix   = "port"
	ClientIDPrefix = "client"
	ScopeIDPrefix  = "scope"
)

// GenerateSecureID returns prefix_<length random base64url chars>.
func GenerateSecureID(prefix string, length int) (string, error) {
	// 3 bytes encode to 4 chars; the extra 2 bytes cover rounding.
	bytes := make([]byte, (length*3/4)+2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := strings.TrimRight(base64.URLEncoding.EncodeToString(bytes), "=")
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return fmt.Sprintf("%s_%s", prefix, encoded), nil
}

// GeneratePortID names a transferred channel port handed to a page client.
func GeneratePortID() (string, error) {
	return GenerateSecureID(PortIDPrefix, 24)
}

// GenerateClientID names a connected page client.
func GenerateClientID() (string, error) {
	return GenerateSecureID(ClientIDPrefix, 16)
}

// GenerateScopeID names a client scope: the set of pages opened by one
// browser session.
func GenerateScopeID() (string, error) {
	return GenerateSecureID(ScopeIDPrefix, 32)
}

// ValidateIDFormat reports whether id is expectedPrefix_ followed by base64url characters.
func ValidateIDFormat(id, expectedPrefix string) bool {
	if !strings.HasPrefix(id, expectedPrefix+"_") {
		return false
	}
	suffix := id[len(expectedPrefix)+1:]
	if len(suffix) == 0 {
		return false
	}
	for _, char := range suffix {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_') {
			return false
		}
	}
	return true
}
