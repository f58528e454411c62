package loop

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSecretFormat(t *testing.T) {
	re := regexp.MustCompile(`^RALPH_COMPLETE_[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := NewSecret()
		assert.Regexp(t, re, s)
		assert.False(t, seen[s], "secret %s repeated", s)
		seen[s] = true
	}
}

func TestDetect(t *testing.T) {
	secret := "RALPH_COMPLETE_deadbeef"

	assert.True(t, Detect("all done\nRALPH_COMPLETE_deadbeef\n", secret))
	assert.True(t, Detect("prefixRALPH_COMPLETE_deadbeefsuffix", secret))
	assert.False(t, Detect("RALPH_COMPLETE_deadbee", secret))
	assert.False(t, Detect("", secret))
	assert.False(t, Detect("RALPH_COMPLETE_DEADBEEF", secret))
}
