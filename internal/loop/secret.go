package loop

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const secretPrefix = "RALPH_COMPLETE_"

// NewSecret returns a fresh per-run completion token of the form
// RALPH_COMPLETE_<8 lowercase hex chars>. The agent must echo it verbatim to
// claim completion; validation still has the final word.
func NewSecret() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return secretPrefix + hex.EncodeToString(b)
}

// Detect reports whether output contains the secret as a contiguous
// substring.
func Detect(output, secret string) bool {
	return strings.Contains(output, secret)
}
