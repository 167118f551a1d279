package images

import (
	"bytes"

	"github.com/cshum/vipsgen/vips"
	"github.com/pkg/errors"
)

// vipsFormats are the formats libvips loads and saves without extra loaders.
var vipsFormats = map[ImageFormat]bool{
	FormatJPEG: true,
	FormatPNG:  true,
	FormatWebP: true,
	FormatTIFF: true,
	FormatGIF:  true,
}

// VipsSupports reports whether libvips handles format directly.
func VipsSupports(format ImageFormat) bool {
	return vipsFormats[format]
}

func loadVips(data []byte) (*vips.Image, error) {
	img, err := vips.NewImageFromBuffer(data, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load image")
	}
	return img, nil
}

// vipsRaster hands img back to the Go side through a PNG buffer, which keeps
// the band count and depth.
func vipsRaster(img *vips.Image) (*Raster, error) {
	buf, err := img.PngsaveBuffer(&vips.PngsaveBufferOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to export image")
	}
	if len(buf) == 0 {
		return nil, errors.New("failed to export image")
	}
	r, _, err := Decode(bytes.NewReader(buf))
	return r, err
}

func rasterVips(r *Raster) (*vips.Image, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r, FormatPNG, EncodeOptions{}); err != nil {
		return nil, err
	}
	return loadVips(buf.Bytes())
}

// DecodeVips loads an encoded image with libvips.
//
// Arguments:
//   - data: The encoded image.
//
// Returns:
//   - *Raster: The decoded samples.
//   - error: An error if libvips cannot load the buffer.
func DecodeVips(data []byte) (*Raster, error) {
	img, err := loadVips(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return vipsRaster(img)
}

// ResizeVips scales the raster to exactly size with libvips thumbnailing.
//
// Arguments:
//   - r: The source raster.
//   - size: The target size.
//
// Returns:
//   - *Raster: The resized raster.
//   - error: An error if the size is invalid or libvips fails.
func ResizeVips(r *Raster, size Size) (*Raster, error) {
	if r == nil || len(r.Pix) == 0 {
		return nil, errors.Wrap(ErrEmptyImage, "nothing to resize")
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	img, err := rasterVips(r)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	// Resize the image in-place.
	err = img.ThumbnailImage(size.Width, &vips.ThumbnailImageOptions{
		Height: size.Height,
		Size:   vips.SizeForce,
		FailOn: vips.FailOnError,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resize image")
	}
	return vipsRaster(img)
}

// EncodeVips encodes the raster with the libvips saver for format. JPEG, PNG
// and WebP are supported; WebP is written lossless like Encode does.
//
// Arguments:
//   - r: The raster to encode.
//   - format: The output format.
//   - opts: Encoder options.
//
// Returns:
//   - []byte: The encoded image.
//   - error: An error if the format has no saver here or libvips fails.
func EncodeVips(r *Raster, format ImageFormat, opts EncodeOptions) ([]byte, error) {
	if r == nil || len(r.Pix) == 0 {
		return nil, errors.Wrap(ErrEmptyImage, "nothing to encode")
	}
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "libvips saver for %q", format)
	}
	img, err := rasterVips(r)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	var buf []byte
	switch format {
	case FormatJPEG:
		buf, err = img.JpegsaveBuffer(&vips.JpegsaveBufferOptions{Q: opts.JPEGQuality})
	case FormatPNG:
		buf, err = img.PngsaveBuffer(&vips.PngsaveBufferOptions{})
	case FormatWebP:
		buf, err = img.WebpsaveBuffer(&vips.WebpsaveBufferOptions{Lossless: true})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s encoding failed", format)
	}
	if len(buf) == 0 {
		return nil, errors.Errorf("%s encoding produced no data", format)
	}
	return buf, nil
}
