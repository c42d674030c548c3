package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKnownKey(t *testing.T) {
	s := ForName("commerce")

	assert.Equal(t, "order", s.Normalize("order"))
	assert.Equal(t, "order", s.Normalize("  Order \n"))
	assert.Equal(t, "urgent-support", s.Normalize("URGENT-SUPPORT"))
}

func TestNormalizeUnknownFallsBackToOther(t *testing.T) {
	s := ForName("commerce")

	assert.Equal(t, KeyOther, s.Normalize("banana"))
	assert.Equal(t, KeyOther, s.Normalize(""))
	assert.Equal(t, KeyOther, s.Normalize("order please"))
}

func TestNormalizeNeverYieldsUncategorized(t *testing.T) {
	// "uncategorized" denotes absence; the model must not be able to
	// pick it.
	s := ForName("general")

	assert.Equal(t, KeyOther, s.Normalize("uncategorized"))
}

func TestNormalizeAlwaysInKeySet(t *testing.T) {
	s := ForName("general")
	keys := make(map[string]struct{})
	for _, k := range s.Keys() {
		keys[k] = struct{}{}
	}

	for _, raw := range []string{"work", "banana", "", "WORK", "news\n", "🤖"} {
		got := s.Normalize(raw)
		_, ok := keys[got]
		assert.True(t, ok, "Normalize(%q) = %q not in key set", raw, got)
	}
}

func TestKeysExcludeSentinel(t *testing.T) {
	for _, name := range []string{"general", "commerce"} {
		s := ForName(name)
		assert.NotContains(t, s.Keys(), KeyUncategorized)
		assert.Contains(t, s.Keys(), KeyOther)
	}
}

func TestForNameFallsBackToCommerce(t *testing.T) {
	assert.Equal(t, "commerce", ForName("nope").Name)
	assert.Equal(t, "general", ForName("General").Name)
}

func TestMetaFallbacks(t *testing.T) {
	s := ForName("commerce")

	assert.Equal(t, "Order", s.Meta("order").Label)
	assert.Equal(t, "Other", s.Meta("banana").Label)
	assert.Equal(t, "Uncategorized", s.Meta("").Label)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Order", DisplayName("order"))
	assert.Equal(t, "", DisplayName(""))
}
