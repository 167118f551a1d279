package labels

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/blanklabel/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeTestImage writes a width x height gradient to dir/name and returns its path.
func writeTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	r, err := images.FromImage(img)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, images.WriteFile(path, r, images.EncodeOptions{}))
	return path
}

// writeAlphaImage writes an opaque raster with an alpha channel to dir/name.
// Two channels give a gray+alpha PNG, four an RGBA PNG.
func writeAlphaImage(t *testing.T, dir, name string, channels int) (string, *images.Raster) {
	t.Helper()
	r, err := images.NewRaster(images.Shape{Height: 12, Width: 20, Channels: channels}, images.Uint8)
	require.NoError(t, err)
	for y := 0; y < 12; y++ {
		for x := 0; x < 20; x++ {
			for c := 0; c < channels-1; c++ {
				r.Set(y, x, c, uint16(x*10+y+c*40))
			}
			r.Set(y, x, channels-1, 255)
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, images.WriteFile(path, r, images.EncodeOptions{}))
	return path, r
}

// pngColorType returns the IHDR colour type of the PNG at path.
func pngColorType(t *testing.T, path string) byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 25)
	return data[25]
}

func newTestPipeline(t *testing.T, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPipeline(cfg, zap.NewNop())
	require.NoError(t, err)
	return p
}

func readRaster(t *testing.T, path string) *images.Raster {
	t.Helper()
	r, _, err := images.ReadFile(path)
	require.NoError(t, err)
	return r
}

func TestPipelineIdentity(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{
		Input: input,
		Image: filepath.Join(dir, "images", "0001.png"),
		Mask:  filepath.Join(dir, "labels", "0001.png"),
	}

	result, err := newTestPipeline(t, nil).Run(context.Background(), job)
	require.NoError(t, err)

	src := readRaster(t, input)
	out := readRaster(t, job.Image)
	mask := readRaster(t, job.Mask)

	assert.True(t, src.Equal(out), "output image should decode to the input pixels")
	assert.Equal(t, out.Shape, mask.Shape)
	assert.Equal(t, out.SampleType, mask.SampleType)
	assert.True(t, mask.IsZero(), "every mask sample should be zero")

	assert.False(t, result.Resized)
	assert.Equal(t, images.Shape{Height: 48, Width: 64, Channels: 3}, result.Shape)
	assert.Equal(t, images.Checksum(src), result.ImageChecksum)
	assert.Equal(t, images.Checksum(mask), result.MaskChecksum)
}

func TestPipelineGrayscale(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray16(image.Rect(0, 0, 10, 6))
	gray.SetGray16(4, 4, color.Gray16{Y: 4242})
	r, err := images.FromImage(gray)
	require.NoError(t, err)
	input := filepath.Join(dir, "depth.png")
	require.NoError(t, images.WriteFile(input, r, images.EncodeOptions{}))

	job := Job{Input: input, Image: filepath.Join(dir, "img.tiff"), Mask: filepath.Join(dir, "mask.png")}
	_, err = newTestPipeline(t, nil).Run(context.Background(), job)
	require.NoError(t, err)

	out := readRaster(t, job.Image)
	mask := readRaster(t, job.Mask)
	assert.True(t, r.Equal(out))
	assert.Equal(t, images.Shape{Height: 6, Width: 10, Channels: 1}, mask.Shape)
	assert.Equal(t, images.Uint16, mask.SampleType)
	assert.True(t, mask.IsZero())
}

func TestPipelineResize(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{
		Input: input,
		Image: filepath.Join(dir, "out.jpg"),
		Mask:  filepath.Join(dir, "mask.png"),
	}

	p := newTestPipeline(t, func(c *Config) {
		c.Resize = &images.Size{Width: 400, Height: 400}
	})
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Resized)

	f, err := os.Open(job.Image)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 400, cfg.Height)

	mask := readRaster(t, job.Mask)
	assert.Equal(t, images.Shape{Height: 400, Width: 400, Channels: 3}, mask.Shape)
	assert.True(t, mask.IsZero())
}

func TestPipelineResizeFilterName(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 16, 12)
	job := Job{Input: input, Image: filepath.Join(dir, "a.png"), Mask: filepath.Join(dir, "b.png")}

	p := newTestPipeline(t, func(c *Config) {
		c.Filter = "Bilinear"
		c.Resize = &images.Size{Width: 8, Height: 6}
	})
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, images.Shape{Height: 6, Width: 8, Channels: 3}, result.Shape)
}

func TestPipelineErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 8, 8)

	tests := []struct {
		name string
		job  Job
	}{
		{"missing input", Job{Input: filepath.Join(dir, "missing.png"), Image: filepath.Join(dir, "a.png"), Mask: filepath.Join(dir, "b.png")}},
		{"not an image", Job{Input: filepath.Join(dir, "junk.png"), Image: filepath.Join(dir, "a.png"), Mask: filepath.Join(dir, "b.png")}},
		{"unknown image extension", Job{Input: input, Image: filepath.Join(dir, "a.xyz"), Mask: filepath.Join(dir, "b.png")}},
		{"unknown mask extension", Job{Input: input, Image: filepath.Join(dir, "a.png"), Mask: filepath.Join(dir, "b.xyz")}},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.png"), []byte("junk"), 0o644))

	p := newTestPipeline(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.job)
			assert.Error(t, err)
		})
	}
}

func TestPipelineCanceled(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 8, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := Job{Input: input, Image: filepath.Join(dir, "a.png"), Mask: filepath.Join(dir, "b.png")}
	_, err := newTestPipeline(t, nil).Run(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(job.Image)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written after cancellation")
}

func TestNewPipelineInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "magick"
	_, err := NewPipeline(cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestBackendRejectsForeignFrames(t *testing.T) {
	native := &NativeBackend{Filter: images.Lanczos3Filter}
	_, err := native.ZerosLike(&matFrame{})
	assert.Error(t, err)

	opencv := &OpenCVBackend{}
	_, err = opencv.ZerosLike(&rasterFrame{})
	assert.Error(t, err)

	vips := &VipsBackend{}
	_, err = vips.Resize(&matFrame{}, images.Size{Width: 2, Height: 2})
	assert.Error(t, err)
}

// TestPipelinePNGAlpha checks that alpha channels survive even when every
// pixel is opaque, so the image and mask keep the input's PNG colour type.
func TestPipelinePNGAlpha(t *testing.T) {
	tests := []struct {
		name      string
		channels  int
		colorType byte
		backends  []string
	}{
		{"rgba", 4, 6, []string{BackendNative, BackendOpenCV, BackendVips}},
		{"gray alpha", 2, 4, []string{BackendNative, BackendVips}},
	}

	for _, tt := range tests {
		for _, backend := range tt.backends {
			t.Run(tt.name+"/"+backend, func(t *testing.T) {
				dir := t.TempDir()
				input, src := writeAlphaImage(t, dir, "input.png", tt.channels)
				require.Equal(t, tt.colorType, pngColorType(t, input))

				job := Job{Input: input, Image: filepath.Join(dir, "img.png"), Mask: filepath.Join(dir, "mask.png")}
				p := newTestPipeline(t, func(c *Config) { c.Backend = backend })
				result, err := p.Run(context.Background(), job)
				require.NoError(t, err)
				assert.Equal(t, src.Shape, result.Shape)

				assert.Equal(t, tt.colorType, pngColorType(t, job.Image))
				assert.Equal(t, tt.colorType, pngColorType(t, job.Mask))

				out := readRaster(t, job.Image)
				mask := readRaster(t, job.Mask)
				assert.Equal(t, src.Shape, out.Shape)
				assert.Equal(t, out.Shape, mask.Shape)
				assert.True(t, mask.IsZero())
				assert.True(t, src.Equal(out), "samples should be unchanged")
			})
		}
	}
}

func TestPipelineVips(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{
		Input: input,
		Image: filepath.Join(dir, "images", "0001.png"),
		Mask:  filepath.Join(dir, "labels", "0001.bmp"),
	}

	p := newTestPipeline(t, func(c *Config) { c.Backend = BackendVips })
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, images.Shape{Height: 48, Width: 64, Channels: 3}, result.Shape)

	src := readRaster(t, input)
	out := readRaster(t, job.Image)
	mask := readRaster(t, job.Mask)
	assert.True(t, src.Equal(out))
	assert.Equal(t, out.Shape, mask.Shape)
	assert.True(t, mask.IsZero())
}

func TestPipelineVipsResize(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{Input: input, Image: filepath.Join(dir, "img.jpg"), Mask: filepath.Join(dir, "mask.webp")}

	p := newTestPipeline(t, func(c *Config) {
		c.Backend = BackendVips
		c.Resize = &images.Size{Width: 32, Height: 16}
	})
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Resized)
	assert.Equal(t, images.Shape{Height: 16, Width: 32, Channels: 3}, result.Shape)

	out := readRaster(t, job.Image)
	assert.Equal(t, result.Shape, out.Shape)
	mask := readRaster(t, job.Mask)
	assert.Equal(t, result.Shape, mask.Shape)
	assert.True(t, mask.IsZero())
}

func TestPipelineOpenCV(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{
		Input: input,
		Image: filepath.Join(dir, "out", "0001.png"),
		Mask:  filepath.Join(dir, "out", "0001_mask.png"),
	}

	p := newTestPipeline(t, func(c *Config) { c.Backend = BackendOpenCV })
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, images.Shape{Height: 48, Width: 64, Channels: 3}, result.Shape)

	src := readRaster(t, input)
	out := readRaster(t, job.Image)
	mask := readRaster(t, job.Mask)
	assert.True(t, src.Equal(out))
	assert.Equal(t, out.Shape, mask.Shape)
	assert.True(t, mask.IsZero())
}

func TestPipelineOpenCVResize(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png", 64, 48)
	job := Job{Input: input, Image: filepath.Join(dir, "img.jpg"), Mask: filepath.Join(dir, "mask.png")}

	p := newTestPipeline(t, func(c *Config) {
		c.Backend = BackendOpenCV
		c.Resize = &images.Size{Width: 32, Height: 16}
	})
	result, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Resized)
	assert.Equal(t, images.Shape{Height: 16, Width: 32, Channels: 3}, result.Shape)

	mask := readRaster(t, job.Mask)
	assert.Equal(t, result.Shape, mask.Shape)
	assert.True(t, mask.IsZero())
}
