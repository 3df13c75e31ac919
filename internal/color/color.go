// Package color derives stable default colors for tags.
package color

import (
	"fmt"
	"hash/fnv"
)

// ForKey returns a lowercase #rrggbb color that is always the same for key.
// Hues spread over the wheel; saturation and lightness stay fixed so labels
// remain readable on light and dark backgrounds.
func ForKey(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.55, 0.55)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// hslToRGB converts h in [0,360) and s, l in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360

	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}

	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
