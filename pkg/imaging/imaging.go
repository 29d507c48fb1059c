package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
)

// DefaultJPEGQuality matches the quality the annotation pipeline submits
// frames with.
const DefaultJPEGQuality = 95

var (
	ErrEmptyImage      = errors.New("image has no pixel data")
	ErrInvalidPixelLen = errors.New("pixel buffer does not match width*height*3")
)

// Image is an 8-bit interleaved raster with three channels per pixel.
// Decoded images are RGB ordered; ReverseChannels flips the per-pixel byte
// order, and EncodeJPEG consumes BGR-ordered rasters.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

func FromBytes(width, height int, pix []byte) (*Image, error) {
	if len(pix) != width*height*3 {
		return nil, ErrInvalidPixelLen
	}

	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// Decode parses a JPEG or PNG payload into an RGB raster.
func Decode(data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	im := New(bounds.Dx(), bounds.Dy())

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			im.Pix[i] = uint8(r >> 8)
			im.Pix[i+1] = uint8(g >> 8)
			im.Pix[i+2] = uint8(b >> 8)
			i += 3
		}
	}

	return im, nil
}

func (im *Image) Empty() bool {
	return im == nil || len(im.Pix) == 0
}

func (im *Image) Clone() *Image {
	if im == nil {
		return nil
	}

	out := &Image{Width: im.Width, Height: im.Height, Pix: make([]byte, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// ReverseChannels returns a copy with the per-pixel byte order flipped
// (RGB becomes BGR and vice versa). Dimensions are unchanged.
func (im *Image) ReverseChannels() *Image {
	if im == nil {
		return nil
	}

	out := &Image{Width: im.Width, Height: im.Height, Pix: make([]byte, len(im.Pix))}
	for p := 0; p+2 < len(im.Pix); p += 3 {
		out.Pix[p] = im.Pix[p+2]
		out.Pix[p+1] = im.Pix[p+1]
		out.Pix[p+2] = im.Pix[p]
	}

	return out
}

// EncodeJPEG renders a BGR-ordered raster to an in-memory JPEG. No resizing
// is applied.
func EncodeJPEG(im *Image, quality int) ([]byte, error) {
	if im.Empty() {
		return nil, ErrEmptyImage
	}
	if len(im.Pix) != im.Width*im.Height*3 {
		return nil, ErrInvalidPixelLen
	}

	rgba := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for p, q := 0, 0; p < len(im.Pix); p, q = p+3, q+4 {
		rgba.Pix[q] = im.Pix[p+2]
		rgba.Pix[q+1] = im.Pix[p+1]
		rgba.Pix[q+2] = im.Pix[p]
		rgba.Pix[q+3] = 0xff
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
