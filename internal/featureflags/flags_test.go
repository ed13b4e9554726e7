package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"1":     true,
		"TRUE":  true,
		" yes ": true,
		"on":    true,
		"0":     false,
		"off":   false,
		"maybe": false,
	}
	for v, want := range cases {
		t.Setenv("FLAG_STRICT_PROVIDER_AUTH", v)
		assert.Equal(t, want, Enabled(StrictProviderAuth), "value %q", v)
	}
}

func TestSnapshot(t *testing.T) {
	t.Setenv("FLAG_STRICT_PROVIDER_AUTH", "true")
	assert.Equal(t, map[string]bool{StrictProviderAuth: true}, Snapshot())
}
