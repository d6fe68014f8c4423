package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForUser_StableAndWellFormed(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9A-F]{6}$`)

	for _, id := range []string{"user-1", "user-2", "", "Zoé"} {
		c := ForUser(id)
		assert.Regexp(t, hex, c)
		assert.Equal(t, c, ForUser(id))
	}
}

func TestForUser_Spreads(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		seen[ForUser(id)] = true
	}
	assert.Greater(t, len(seen), 3)
}

func TestHSLToRGB(t *testing.T) {
	tests := []struct {
		hue, s, l float64
		r, g, b   uint8
	}{
		{0, 1, 0.5, 255, 0, 0},
		{120, 1, 0.5, 0, 255, 0},
		{240, 1, 0.5, 0, 0, 255},
		{60, 1, 0.5, 255, 255, 0},
		{0, 0, 1, 255, 255, 255},
		{200, 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		r, g, b := hslToRGB(tt.hue, tt.s, tt.l)
		assert.Equal(t, []uint8{tt.r, tt.g, tt.b}, []uint8{r, g, b}, "hue %v", tt.hue)
	}
}
