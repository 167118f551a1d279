package images

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// EncodeOptions configures the encoders used by Encode and WriteFile.
type EncodeOptions struct {
	// JPEGQuality is the JPEG quality in 1..100. Zero means jpeg.DefaultQuality.
	JPEGQuality int
}

// Decode reads an image from r and converts it to a raster.
//
// Arguments:
//   - r: The encoded image stream.
//
// Returns:
//   - *Raster: The decoded samples.
//   - ImageFormat: The format sniffed from the stream.
//   - error: An error if the stream is not a supported image.
func Decode(r io.Reader) (*Raster, ImageFormat, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read image data")
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "image decoding failed")
	}
	format, err := ParseFormat(name)
	if err != nil {
		return nil, "", err
	}

	channels := 0
	if format == FormatPNG {
		channels = pngChannels(data)
	}
	raster, err := FromImageChannels(img, channels)
	if err != nil {
		return nil, "", errors.Wrap(err, "image conversion failed")
	}
	return raster, format, nil
}

// Encode writes the raster to w using the defaults of the given format.
//
// Arguments:
//   - w: The destination.
//   - r: The raster to encode.
//   - format: The output format.
//   - opts: Encoder options.
//
// Returns:
//   - error: An error if encoding fails or the format is unsupported.
func Encode(w io.Writer, r *Raster, format ImageFormat, opts EncodeOptions) error {
	if r == nil || len(r.Pix) == 0 {
		return errors.Wrap(ErrEmptyImage, "nothing to encode")
	}
	img := r.Image()

	var err error
	switch format {
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality == 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		err = encodePNG(w, r, img)
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Lossless: true})
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatGIF:
		err = encodeGIF(w, img)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "format %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "%s encoding failed", format)
	}
	return nil
}

// withAlpha reports itself as non-opaque so the PNG encoder keeps the alpha
// channel of a four-channel raster even when every pixel is opaque.
type withAlpha struct {
	image.Image
}

func (withAlpha) Opaque() bool { return false }

func encodePNG(w io.Writer, r *Raster, img image.Image) error {
	switch r.Shape.Channels {
	case 2:
		return encodeGrayAlphaPNG(w, r)
	case 4:
		return png.Encode(w, withAlpha{img})
	default:
		return png.Encode(w, img)
	}
}

// encodeGIF writes img with an exact palette when it has at most 256 colours
// and falls back to the quantizing encoder otherwise.
func encodeGIF(w io.Writer, img image.Image) error {
	if paletted, ok := exactPalette(img); ok {
		return gif.Encode(w, paletted, nil)
	}
	return gif.Encode(w, img, &gif.Options{NumColors: 256})
}

func exactPalette(img image.Image) (*image.Paletted, bool) {
	b := img.Bounds()
	paletted := image.NewPaletted(b, nil)
	index := make(map[color.NRGBA]uint8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i, ok := index[c]
			if !ok {
				if len(paletted.Palette) == 256 {
					return nil, false
				}
				i = uint8(len(paletted.Palette))
				index[c] = i
				paletted.Palette = append(paletted.Palette, c)
			}
			paletted.Pix[paletted.PixOffset(x, y)] = i
		}
	}
	return paletted, true
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Raster, ImageFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

// WriteFile encodes the raster to path. The format is taken from the extension
// of path and missing parent directories are created.
func WriteFile(path string, r *Raster, opts EncodeOptions) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create image file")
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, r, format, opts); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to flush image file")
	}
	return errors.Wrap(f.Close(), "failed to close image file")
}
