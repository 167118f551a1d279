package images

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
	FormatGIF  ImageFormat = "gif"
)

// ErrUnsupportedFormat is returned when a path or stream is not one of the
// formats listed above.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".gif":  FormatGIF,
}

// FormatFromPath returns the format implied by the file extension of path.
//
// Arguments:
//   - path: The file path, the extension is matched case-insensitively.
//
// Returns:
//   - ImageFormat: The matching format.
//   - error: ErrUnsupportedFormat if the extension is unknown.
func FormatFromPath(path string) (ImageFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := extensions[ext]; ok {
		return format, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
}

// ParseFormat maps a decoder name as reported by image.Decode to an ImageFormat.
func ParseFormat(name string) (ImageFormat, error) {
	switch f := ImageFormat(strings.ToLower(name)); f {
	case FormatJPEG, FormatWebP, FormatPNG, FormatBMP, FormatTIFF, FormatGIF:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "decoder %q", name)
}
