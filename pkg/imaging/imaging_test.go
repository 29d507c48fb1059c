package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromBytes tests raster construction from raw pixel buffers.
func TestFromBytes(t *testing.T) {
	t.Parallel()

	t.Run("accepts a buffer matching the dimensions", func(t *testing.T) {
		t.Parallel()
		pix := []byte{1, 2, 3, 4, 5, 6}

		im, err := FromBytes(2, 1, pix)
		require.NoError(t, err)
		assert.Equal(t, 2, im.Width)
		assert.Equal(t, 1, im.Height)
		assert.Equal(t, pix, im.Pix)
	})

	t.Run("rejects a buffer of the wrong length", func(t *testing.T) {
		t.Parallel()
		_, err := FromBytes(2, 2, []byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidPixelLen)
	})
}

// TestReverseChannels tests the per-pixel byte-order flip.
func TestReverseChannels(t *testing.T) {
	t.Parallel()

	t.Run("swaps the first and third channel of every pixel", func(t *testing.T) {
		t.Parallel()
		im, err := FromBytes(2, 1, []byte{10, 20, 30, 40, 50, 60})
		require.NoError(t, err)

		out := im.ReverseChannels()
		assert.Equal(t, []byte{30, 20, 10, 60, 50, 40}, out.Pix)
		assert.Equal(t, im.Width, out.Width)
		assert.Equal(t, im.Height, out.Height)
	})

	t.Run("leaves the source untouched", func(t *testing.T) {
		t.Parallel()
		im, err := FromBytes(1, 1, []byte{10, 20, 30})
		require.NoError(t, err)

		_ = im.ReverseChannels()
		assert.Equal(t, []byte{10, 20, 30}, im.Pix)
	})

	t.Run("applied twice restores the original order", func(t *testing.T) {
		t.Parallel()
		im, err := FromBytes(2, 2, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
		require.NoError(t, err)

		assert.Equal(t, im.Pix, im.ReverseChannels().ReverseChannels().Pix)
	})
}

// TestDecode tests parsing encoded payloads into RGB rasters.
func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("decodes png pixels losslessly", func(t *testing.T) {
		t.Parallel()
		src := image.NewRGBA(image.Rect(0, 0, 2, 1))
		src.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		src.SetRGBA(1, 0, color.RGBA{R: 0, G: 128, B: 255, A: 255})

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, src))

		im, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 2, im.Width)
		assert.Equal(t, 1, im.Height)
		assert.Equal(t, []byte{255, 0, 0, 0, 128, 255}, im.Pix)
	})

	t.Run("rejects payloads that are not images", func(t *testing.T) {
		t.Parallel()
		_, err := Decode([]byte("definitely not an image"))
		assert.Error(t, err)
	})
}

// TestEncodeJPEG tests rendering BGR rasters to JPEG payloads.
func TestEncodeJPEG(t *testing.T) {
	t.Parallel()

	t.Run("round-trips a uniform color within jpeg tolerance", func(t *testing.T) {
		t.Parallel()
		// Red in BGR byte order.
		im := New(4, 4)
		for p := 0; p < len(im.Pix); p += 3 {
			im.Pix[p+2] = 255
		}

		payload, err := EncodeJPEG(im, DefaultJPEGQuality)
		require.NoError(t, err)

		decoded, format, err := image.Decode(bytes.NewReader(payload))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)

		r, g, b, _ := decoded.At(1, 1).RGBA()
		assert.InDelta(t, 255, r>>8, 4)
		assert.InDelta(t, 0, g>>8, 4)
		assert.InDelta(t, 0, b>>8, 4)
	})

	t.Run("rejects an empty raster", func(t *testing.T) {
		t.Parallel()
		_, err := EncodeJPEG(&Image{}, DefaultJPEGQuality)
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("rejects a raster with mismatched dimensions", func(t *testing.T) {
		t.Parallel()
		_, err := EncodeJPEG(&Image{Width: 2, Height: 2, Pix: []byte{1, 2, 3}}, DefaultJPEGQuality)
		assert.ErrorIs(t, err, ErrInvalidPixelLen)
	})
}

// TestClone tests deep copying of rasters.
func TestClone(t *testing.T) {
	t.Parallel()

	im, err := FromBytes(1, 1, []byte{1, 2, 3})
	require.NoError(t, err)

	clone := im.Clone()
	clone.Pix[0] = 99
	assert.Equal(t, byte(1), im.Pix[0])

	var nilImage *Image
	assert.Nil(t, nilImage.Clone())
	assert.True(t, nilImage.Empty())
}
