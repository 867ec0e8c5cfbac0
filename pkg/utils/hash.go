package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashString returns a stable hex digest of the input, used for cache
// keys. Input is normalized so queries differing only in case or
// surrounding whitespace share a key.
func HashString(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
