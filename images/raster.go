// Package images provides the raster data model, codecs and resizing used to
// prepare images and placeholder label masks for segmentation datasets.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ErrEmptyImage is returned when an image has no pixels.
var ErrEmptyImage = errors.New("image is empty")

// SampleType is the numeric type of a single raster sample.
type SampleType int

const (
	// Uint8 samples occupy one byte.
	Uint8 SampleType = iota + 1
	// Uint16 samples occupy two bytes, stored big-endian like image.Gray16.
	Uint16
)

// Size returns the number of bytes per sample.
func (s SampleType) Size() int {
	switch s {
	case Uint8:
		return 1
	case Uint16:
		return 2
	default:
		return 0
	}
}

func (s SampleType) String() string {
	switch s {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	default:
		return fmt.Sprintf("SampleType(%d)", int(s))
	}
}

// Shape is the (height, width, channels) shape of a raster.
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Len returns the number of samples described by the shape.
func (s Shape) Len() int {
	return s.Height * s.Width * s.Channels
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Height, s.Width, s.Channels)
}

// Raster is a decoded image held as interleaved samples in row-major order.
//
// Channel layouts:
//   - 1: gray (or alpha for alpha-only sources).
//   - 2: gray, alpha.
//   - 3: red, green, blue.
//   - 4: red, green, blue, non-premultiplied alpha.
type Raster struct {
	Shape      Shape
	SampleType SampleType
	// Pix holds Shape.Len() samples of SampleType.Size() bytes each.
	Pix []byte
}

// NewRaster allocates a zero-filled raster.
//
// Arguments:
//   - shape: The raster shape. Height and width must be positive and channels in 1..4.
//   - sampleType: The sample type.
//
// Returns:
//   - *Raster: The allocated raster.
//   - error: An error if the shape or sample type is invalid.
func NewRaster(shape Shape, sampleType SampleType) (*Raster, error) {
	if shape.Height <= 0 || shape.Width <= 0 {
		return nil, errors.Wrapf(ErrEmptyImage, "shape %s", shape)
	}
	if shape.Channels < 1 || shape.Channels > 4 {
		return nil, errors.Errorf("unsupported channel count: %d", shape.Channels)
	}
	if sampleType.Size() == 0 {
		return nil, errors.Errorf("unsupported sample type: %s", sampleType)
	}
	return &Raster{
		Shape:      shape,
		SampleType: sampleType,
		Pix:        make([]byte, shape.Len()*sampleType.Size()),
	}, nil
}

func (r *Raster) offset(y, x, c int) int {
	return ((y*r.Shape.Width+x)*r.Shape.Channels + c) * r.SampleType.Size()
}

// At returns the sample at row y, column x and channel c.
func (r *Raster) At(y, x, c int) uint16 {
	i := r.offset(y, x, c)
	if r.SampleType == Uint16 {
		return uint16(r.Pix[i])<<8 | uint16(r.Pix[i+1])
	}
	return uint16(r.Pix[i])
}

// Set stores v at row y, column x and channel c. For Uint8 rasters v is truncated to a byte.
func (r *Raster) Set(y, x, c int, v uint16) {
	i := r.offset(y, x, c)
	if r.SampleType == Uint16 {
		r.Pix[i] = uint8(v >> 8)
		r.Pix[i+1] = uint8(v)
		return
	}
	r.Pix[i] = uint8(v)
}

// IsZero reports whether every sample is zero.
func (r *Raster) IsZero() bool {
	for _, b := range r.Pix {
		if b != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both rasters have the same shape, sample type and samples.
func (r *Raster) Equal(other *Raster) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Shape == other.Shape &&
		r.SampleType == other.SampleType &&
		bytes.Equal(r.Pix, other.Pix)
}

// ZerosLike returns a raster with the shape and sample type of r and every sample set to zero.
func ZerosLike(r *Raster) *Raster {
	return &Raster{
		Shape:      r.Shape,
		SampleType: r.SampleType,
		Pix:        make([]byte, len(r.Pix)),
	}
}

// FromImage converts a decoded image into a raster, taking the channel count
// from the colour model of the source.
//
//   - Gray, Gray16, Alpha, Alpha16: one channel.
//   - YCbCr, CMYK: three channels.
//   - NRGBA, NRGBA64, NYCbCrA: four channels, the model stores alpha.
//   - RGBA, RGBA64, Paletted and other models: three channels when every
//     pixel is opaque, four otherwise.
//
// Arguments:
//   - img: The decoded image.
//
// Returns:
//   - *Raster: The raster holding a copy of the image samples.
//   - error: ErrEmptyImage if img is nil or has no pixels.
func FromImage(img image.Image) (*Raster, error) {
	return FromImageChannels(img, 0)
}

// FromImageChannels is FromImage with an explicit channel count, used when the
// encoded header says more than the decoded colour model. A gray+alpha PNG, for
// instance, decodes to *image.NRGBA but holds two channels.
//
// Arguments:
//   - img: The decoded image.
//   - channels: The channel count in 1..4, or 0 to derive it from the colour model.
//
// Returns:
//   - *Raster: The raster holding a copy of the image samples.
//   - error: ErrEmptyImage if img is nil or has no pixels.
func FromImageChannels(img image.Image, channels int) (*Raster, error) {
	if img == nil {
		return nil, errors.Wrap(ErrEmptyImage, "image is nil")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Wrapf(ErrEmptyImage, "bounds %v", b)
	}
	if channels == 0 {
		channels = channelsFor(img)
	}

	switch img.(type) {
	case *image.Gray:
		if channels == 1 {
			return fromGray(img, Uint8, func(c color.Color) uint16 {
				return uint16(color.GrayModel.Convert(c).(color.Gray).Y)
			})
		}
	case *image.Gray16:
		if channels == 1 {
			return fromGray(img, Uint16, func(c color.Color) uint16 {
				return color.Gray16Model.Convert(c).(color.Gray16).Y
			})
		}
	case *image.Alpha:
		if channels == 1 {
			return fromGray(img, Uint8, func(c color.Color) uint16 {
				return uint16(color.AlphaModel.Convert(c).(color.Alpha).A)
			})
		}
	case *image.Alpha16:
		if channels == 1 {
			return fromGray(img, Uint16, func(c color.Color) uint16 {
				return color.Alpha16Model.Convert(c).(color.Alpha16).A
			})
		}
	}
	return fromColor(img, sampleTypeFor(img), channels)
}

func sampleTypeFor(img image.Image) SampleType {
	switch img.(type) {
	case *image.Gray16, *image.Alpha16, *image.RGBA64, *image.NRGBA64:
		return Uint16
	default:
		return Uint8
	}
}

func channelsFor(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return 4
	}
	if isOpaque(img) {
		return 3
	}
	return 4
}

// isOpaque uses the image's own Opaque method when it has one and scans the
// pixels otherwise.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

func fromGray(img image.Image, sampleType SampleType, sample func(color.Color) uint16) (*Raster, error) {
	b := img.Bounds()
	r, err := NewRaster(Shape{Height: b.Dy(), Width: b.Dx(), Channels: 1}, sampleType)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r.Set(y, x, 0, sample(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return r, nil
}

// luma uses the coefficients of color.GrayModel on non-premultiplied samples,
// so equal red, green and blue map back to the same value.
func luma(r, g, b uint16) uint16 {
	return uint16((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

func fromColor(img image.Image, sampleType SampleType, channels int) (*Raster, error) {
	b := img.Bounds()
	r, err := NewRaster(Shape{Height: b.Dy(), Width: b.Dx(), Channels: channels}, sampleType)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			var s [4]uint16
			if sampleType == Uint16 {
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				s = [4]uint16{n.R, n.G, n.B, n.A}
			} else {
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				s = [4]uint16{uint16(n.R), uint16(n.G), uint16(n.B), uint16(n.A)}
			}
			switch channels {
			case 1:
				r.Set(y, x, 0, luma(s[0], s[1], s[2]))
			case 2:
				r.Set(y, x, 0, luma(s[0], s[1], s[2]))
				r.Set(y, x, 1, s[3])
			default:
				for ch := 0; ch < channels; ch++ {
					r.Set(y, x, ch, s[ch])
				}
			}
		}
	}
	return r, nil
}

// Image converts the raster back into a Go image suitable for the standard encoders.
// FromImage on the result gives back the same raster for one, three and four
// channels.
//
// Returns:
//   - image.Image: *image.Gray or *image.Gray16 for one channel, opaque
//     *image.RGBA or *image.RGBA64 for three, *image.NRGBA or *image.NRGBA64
//     for two and four.
func (r *Raster) Image() image.Image {
	rect := image.Rect(0, 0, r.Shape.Width, r.Shape.Height)

	switch {
	case r.Shape.Channels == 1 && r.SampleType == Uint16:
		img := image.NewGray16(rect)
		copy(img.Pix, r.Pix)
		return img
	case r.Shape.Channels == 1:
		img := image.NewGray(rect)
		copy(img.Pix, r.Pix)
		return img
	case r.Shape.Channels == 3 && r.SampleType == Uint16:
		img := image.NewRGBA64(rect)
		r.each(0xffff, func(x, y int, s [4]uint16) {
			img.SetRGBA64(x, y, color.RGBA64{R: s[0], G: s[1], B: s[2], A: s[3]})
		})
		return img
	case r.Shape.Channels == 3:
		img := image.NewRGBA(rect)
		r.each(0xff, func(x, y int, s [4]uint16) {
			img.SetRGBA(x, y, color.RGBA{R: uint8(s[0]), G: uint8(s[1]), B: uint8(s[2]), A: uint8(s[3])})
		})
		return img
	case r.SampleType == Uint16:
		img := image.NewNRGBA64(rect)
		r.each(0xffff, func(x, y int, s [4]uint16) {
			img.SetNRGBA64(x, y, color.NRGBA64{R: s[0], G: s[1], B: s[2], A: s[3]})
		})
		return img
	default:
		img := image.NewNRGBA(rect)
		r.each(0xff, func(x, y int, s [4]uint16) {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(s[0]), G: uint8(s[1]), B: uint8(s[2]), A: uint8(s[3])})
		})
		return img
	}
}

func (r *Raster) each(opaque uint16, fn func(x, y int, s [4]uint16)) {
	for y := 0; y < r.Shape.Height; y++ {
		for x := 0; x < r.Shape.Width; x++ {
			fn(x, y, r.pixel(y, x, opaque))
		}
	}
}

// pixel expands the samples at (y, x) to RGBA, filling a missing alpha with opaque.
func (r *Raster) pixel(y, x int, opaque uint16) [4]uint16 {
	switch r.Shape.Channels {
	case 1:
		v := r.At(y, x, 0)
		return [4]uint16{v, v, v, opaque}
	case 2:
		v := r.At(y, x, 0)
		return [4]uint16{v, v, v, r.At(y, x, 1)}
	case 3:
		return [4]uint16{r.At(y, x, 0), r.At(y, x, 1), r.At(y, x, 2), opaque}
	default:
		return [4]uint16{r.At(y, x, 0), r.At(y, x, 1), r.At(y, x, 2), r.At(y, x, 3)}
	}
}
