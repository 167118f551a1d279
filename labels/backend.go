package labels

import (
	"os"
	"path/filepath"

	"github.com/nvr-ai/blanklabel/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// BackendNative decodes and encodes with Go codecs.
	BackendNative = "native"
	// BackendOpenCV decodes and encodes with OpenCV through gocv.
	BackendOpenCV = "opencv"
	// BackendVips resizes and encodes with libvips through vipsgen.
	BackendVips = "vips"
)

// ErrUnknownBackend is returned for backend names that are not registered.
var ErrUnknownBackend = errors.New("unknown backend")

// Frame is an image held by a Backend.
type Frame interface {
	// Shape returns the (height, width, channels) shape of the frame.
	Shape() images.Shape
	// Checksum returns a hex digest of the frame samples.
	Checksum() string
	// Close releases the frame.
	Close() error
}

// Backend reads, transforms and writes frames.
type Backend interface {
	Name() string
	Read(path string) (Frame, error)
	Resize(f Frame, size images.Size) (Frame, error)
	ZerosLike(f Frame) (Frame, error)
	Write(path string, f Frame) error
}

var backends = map[string]func(Config) Backend{
	BackendNative: func(c Config) Backend {
		return &NativeBackend{Filter: c.Filter, Options: images.EncodeOptions{JPEGQuality: c.JPEGQuality}}
	},
	BackendOpenCV: func(c Config) Backend {
		return &OpenCVBackend{JPEGQuality: c.JPEGQuality}
	},
	BackendVips: func(c Config) Backend {
		return &VipsBackend{Options: images.EncodeOptions{JPEGQuality: c.JPEGQuality}}
	},
}

// NewBackend returns the backend named by cfg.Backend.
func NewBackend(cfg Config) (Backend, error) {
	create, ok := backends[cfg.Backend]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", cfg.Backend)
	}
	return create(cfg), nil
}

// rasterFrame is a Frame backed by an images.Raster.
type rasterFrame struct {
	raster *images.Raster
}

func (f *rasterFrame) Shape() images.Shape { return f.raster.Shape }
func (f *rasterFrame) Checksum() string    { return images.Checksum(f.raster) }
func (f *rasterFrame) Close() error        { return nil }

// NativeBackend is a Backend built on the Go image codecs.
type NativeBackend struct {
	Filter  images.ResampleFilter
	Options images.EncodeOptions
}

// Name returns BackendNative.
func (b *NativeBackend) Name() string { return BackendNative }

// Read decodes the image at path with the Go codecs.
func (b *NativeBackend) Read(path string) (Frame, error) {
	r, _, err := images.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &rasterFrame{raster: r}, nil
}

// Resize scales f with nfnt/resize using b.Filter.
func (b *NativeBackend) Resize(f Frame, size images.Size) (Frame, error) {
	rf, err := asRaster(f)
	if err != nil {
		return nil, err
	}
	r, err := images.Resize(rf.raster, size, b.Filter)
	if err != nil {
		return nil, err
	}
	return &rasterFrame{raster: r}, nil
}

// ZerosLike returns an all-zero frame with the shape and depth of f.
func (b *NativeBackend) ZerosLike(f Frame) (Frame, error) {
	rf, err := asRaster(f)
	if err != nil {
		return nil, err
	}
	return &rasterFrame{raster: images.ZerosLike(rf.raster)}, nil
}

// Write encodes f to path in the format named by its extension.
func (b *NativeBackend) Write(path string, f Frame) error {
	rf, err := asRaster(f)
	if err != nil {
		return err
	}
	return images.WriteFile(path, rf.raster, b.Options)
}

func asRaster(f Frame) (*rasterFrame, error) {
	rf, ok := f.(*rasterFrame)
	if !ok {
		return nil, errors.Errorf("frame %T is not a raster frame", f)
	}
	return rf, nil
}

// matFrame is a Frame backed by a gocv.Mat.
type matFrame struct {
	mat gocv.Mat
}

func (f *matFrame) Shape() images.Shape {
	shape, _, _ := images.MatShape(f.mat)
	return shape
}

func (f *matFrame) Checksum() string { return images.ComputeMatChecksum(f.mat) }
func (f *matFrame) Close() error     { return f.mat.Close() }

// OpenCVBackend is a Backend built on gocv. It keeps the on-disk depth and
// channel order of the input, as OpenCV reads it.
type OpenCVBackend struct {
	JPEGQuality int
}

// Name returns BackendOpenCV.
func (b *OpenCVBackend) Name() string { return BackendOpenCV }

// Read loads path with IMReadUnchanged.
func (b *OpenCVBackend) Read(path string) (Frame, error) {
	mat, err := images.ReadMat(path)
	if err != nil {
		return nil, err
	}
	return &matFrame{mat: mat}, nil
}

// Resize scales f with linear interpolation.
func (b *OpenCVBackend) Resize(f Frame, size images.Size) (Frame, error) {
	mf, err := asMat(f)
	if err != nil {
		return nil, err
	}
	mat, err := images.ResizeMat(mf.mat, size)
	if err != nil {
		return nil, err
	}
	return &matFrame{mat: mat}, nil
}

// ZerosLike allocates a zero Mat with the rows, columns and type of f.
func (b *OpenCVBackend) ZerosLike(f Frame) (Frame, error) {
	mf, err := asMat(f)
	if err != nil {
		return nil, err
	}
	return &matFrame{mat: images.ZerosLikeMat(mf.mat)}, nil
}

// Write encodes f with OpenCV. JPEG outputs use b.JPEGQuality when it is set.
func (b *OpenCVBackend) Write(path string, f Frame) error {
	mf, err := asMat(f)
	if err != nil {
		return err
	}
	format, err := images.FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == images.FormatJPEG && b.JPEGQuality > 0 {
		return images.WriteMat(path, mf.mat, int(gocv.IMWriteJpegQuality), b.JPEGQuality)
	}
	return images.WriteMat(path, mf.mat)
}

func asMat(f Frame) (*matFrame, error) {
	mf, ok := f.(*matFrame)
	if !ok {
		return nil, errors.Errorf("frame %T does not belong to the opencv backend", f)
	}
	return mf, nil
}

// VipsBackend is a Backend that loads, thumbnails and saves through libvips.
// Frames are rasters, so masks are built the same way as in NativeBackend.
// Formats libvips has no loader or saver for here go through the Go codecs.
type VipsBackend struct {
	Options images.EncodeOptions
}

// Name returns BackendVips.
func (b *VipsBackend) Name() string { return BackendVips }

// Read loads path with libvips.
func (b *VipsBackend) Read(path string) (Frame, error) {
	format, err := images.FormatFromPath(path)
	if err != nil || !images.VipsSupports(format) {
		r, _, err := images.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &rasterFrame{raster: r}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	r, err := images.DecodeVips(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return &rasterFrame{raster: r}, nil
}

// Resize scales f to exactly size with libvips thumbnailing.
func (b *VipsBackend) Resize(f Frame, size images.Size) (Frame, error) {
	rf, err := asRaster(f)
	if err != nil {
		return nil, err
	}
	r, err := images.ResizeVips(rf.raster, size)
	if err != nil {
		return nil, err
	}
	return &rasterFrame{raster: r}, nil
}

// ZerosLike returns an all-zero frame with the shape and depth of f.
func (b *VipsBackend) ZerosLike(f Frame) (Frame, error) {
	rf, err := asRaster(f)
	if err != nil {
		return nil, err
	}
	return &rasterFrame{raster: images.ZerosLike(rf.raster)}, nil
}

// Write saves f with libvips for JPEG, PNG and WebP outputs and with the Go
// codecs otherwise.
func (b *VipsBackend) Write(path string, f Frame) error {
	rf, err := asRaster(f)
	if err != nil {
		return err
	}
	format, err := images.FormatFromPath(path)
	if err != nil {
		return err
	}

	buf, err := images.EncodeVips(rf.raster, format, b.Options)
	if errors.Is(err, images.ErrUnsupportedFormat) {
		return images.WriteFile(path, rf.raster, b.Options)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	return errors.Wrap(os.WriteFile(path, buf, 0o644), "failed to write image file")
}
