package auth

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQR(t *testing.T) {
	art, err := RenderQR("https://arnica.aqt.eu/api")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(art, "\n"), "\n")
	width := utf8.RuneCountInString(lines[0])
	require.GreaterOrEqual(t, width, 21)
	assert.Len(t, lines, (width+1)/2, "two module rows per line")

	for i, line := range lines {
		assert.Equal(t, width, utf8.RuneCountInString(line), "line %d", i)
		for _, r := range line {
			assert.Contains(t, []rune{'█', '▀', '▄', '\u00a0'}, r)
		}
		assert.NotContains(t, line, " ", "blank modules use no-break spaces")
	}

	// top rows of the two upper finder patterns
	finder := "█▀▀▀▀▀█"
	assert.True(t, strings.HasPrefix(lines[0], finder))
	assert.True(t, strings.HasSuffix(lines[0], finder))
}

func TestRenderQRDeterministic(t *testing.T) {
	a, err := RenderQR("https://idp.example.com/activate?user_code=ABCD-EFGH")
	require.NoError(t, err)
	b, err := RenderQR("https://idp.example.com/activate?user_code=ABCD-EFGH")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
