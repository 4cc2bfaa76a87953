package helper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash8 returns the first 8 bytes of sha256(s) as hex; used to log e-mails
// without writing them in clear.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// NormalizeEmail trims and lower-cases an address; the users collection
// stores only this form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
