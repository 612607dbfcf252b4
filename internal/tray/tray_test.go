package tray

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcon(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(Icon()))
	require.NoError(t, err)
	assert.Equal(t, 22, img.Bounds().Dx())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "corner is transparent")
	_, _, _, a = img.At(18, 18).RGBA()
	assert.NotZero(t, a, "tallest bar is drawn")
}
