package images

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrInvalidSize is returned for non-positive or malformed target sizes.
var ErrInvalidSize = errors.New("invalid size")

// Size is a target width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Validate checks that both dimensions are positive.
func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Wrapf(ErrInvalidSize, "width=%d, height=%d", s.Width, s.Height)
	}
	return nil
}

// ParseSize parses a size written as WIDTHxHEIGHT, e.g. "400x400", or the
// name of a resolution such as "deeplab" or "720p".
func ParseSize(s string) (Size, error) {
	if res, ok := LookupResolution(s); ok {
		return res.Size, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, errors.Wrapf(ErrInvalidSize, "%q is not WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, errors.Wrapf(ErrInvalidSize, "width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, errors.Wrapf(ErrInvalidSize, "height %q", h)
	}
	size := Size{Width: width, Height: height}
	return size, size.Validate()
}

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter string

const (
	NearestNeighborFilter   ResampleFilter = "nearest"
	BilinearFilter          ResampleFilter = "bilinear"
	BicubicFilter           ResampleFilter = "bicubic"
	MitchellNetravaliFilter ResampleFilter = "mitchell"
	Lanczos2Filter          ResampleFilter = "lanczos2"
	Lanczos3Filter          ResampleFilter = "lanczos3"
)

var interpolations = map[ResampleFilter]resize.InterpolationFunction{
	NearestNeighborFilter:   resize.NearestNeighbor,
	BilinearFilter:          resize.Bilinear,
	BicubicFilter:           resize.Bicubic,
	MitchellNetravaliFilter: resize.MitchellNetravali,
	Lanczos2Filter:          resize.Lanczos2,
	Lanczos3Filter:          resize.Lanczos3,
}

// ParseResampleFilter returns the filter with the given name.
func ParseResampleFilter(name string) (ResampleFilter, error) {
	f := ResampleFilter(strings.ToLower(name))
	if _, ok := interpolations[f]; !ok {
		return "", errors.Errorf("unknown resample filter: %q", name)
	}
	return f, nil
}

// Resize scales the raster to size with the given filter. The channel count and
// sample type of the source are preserved.
//
// Arguments:
//   - r: The source raster.
//   - size: The target size.
//   - filter: The resampling filter. The name is matched case-insensitively.
//
// Returns:
//   - *Raster: The resized raster.
//   - error: An error if the size or filter is invalid.
func Resize(r *Raster, size Size, filter ResampleFilter) (*Raster, error) {
	if r == nil || len(r.Pix) == 0 {
		return nil, errors.Wrap(ErrEmptyImage, "nothing to resize")
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}
	filter, err := ParseResampleFilter(string(filter))
	if err != nil {
		return nil, err
	}

	resized := resize.Resize(uint(size.Width), uint(size.Height), r.Image(), interpolations[filter])

	out, err := FromImage(resized)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert resized image")
	}
	return out.withChannels(r.Shape.Channels), nil
}

// withChannels narrows or widens r to n channels using the layouts documented on Raster.
// Image() never produces two-channel images, so resizing a gray+alpha raster
// goes through four channels and is folded back here.
func (r *Raster) withChannels(n int) *Raster {
	if r.Shape.Channels == n {
		return r
	}
	out := &Raster{
		Shape:      Shape{Height: r.Shape.Height, Width: r.Shape.Width, Channels: n},
		SampleType: r.SampleType,
	}
	out.Pix = make([]byte, out.Shape.Len()*out.SampleType.Size())

	opaque := uint16(0xff)
	if r.SampleType == Uint16 {
		opaque = 0xffff
	}
	for y := 0; y < r.Shape.Height; y++ {
		for x := 0; x < r.Shape.Width; x++ {
			p := r.pixel(y, x, opaque)
			switch n {
			case 1:
				out.Set(y, x, 0, p[0])
			case 2:
				out.Set(y, x, 0, p[0])
				out.Set(y, x, 1, p[3])
			default:
				for c := 0; c < n; c++ {
					out.Set(y, x, c, p[c])
				}
			}
		}
	}
	return out
}
