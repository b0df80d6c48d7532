package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is a stable digest of parts, used as an idempotency key for
// stored records.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
