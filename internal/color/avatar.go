// Package color derives stable avatar colors for users without a picture.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Avatar colors share saturation and lightness so white initials stay
// readable on all of them; only the hue varies.
const (
	saturation = 0.45
	lightness  = 0.55
	hueSteps   = 24
)

// ForUser returns a #RRGGBB color that is the same for every call with
// the same user ID.
func ForUser(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	hue := float64(h.Sum32()%hueSteps) * (360.0 / hueSteps)

	r, g, b := hslToRGB(hue, saturation, lightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts a hue in degrees and saturation and lightness in
// [0,1] to 8-bit RGB.
func hslToRGB(hue, s, l float64) (r, g, b uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(hue, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r1, g1, b1 float64
	switch {
	case hp < 1:
		r1, g1 = c, x
	case hp < 2:
		r1, g1 = x, c
	case hp < 3:
		g1, b1 = c, x
	case hp < 4:
		g1, b1 = x, c
	case hp < 5:
		r1, b1 = x, c
	default:
		r1, b1 = c, x
	}

	m := l - c/2
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r1), to8(g1), to8(b1)
}
