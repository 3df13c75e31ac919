package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestForKey(t *testing.T) {
	for _, key := range []string{"golang", "machine-learning", "", "кино"} {
		c := ForKey(key)
		assert.Regexp(t, hexColor, c, key)
		assert.Equal(t, c, ForKey(key), "stable for %q", key)
	}
	assert.NotEqual(t, ForKey("golang"), ForKey("rust"))
}

func TestHSLToRGB(t *testing.T) {
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, [3]uint8{127, 127, 127}, [3]uint8{r, g, b})

	r, g, b = hslToRGB(0, 1, 0.5)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
}
