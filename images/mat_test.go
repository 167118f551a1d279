package images

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMatReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	require.NoError(t, WriteFile(src, getTestRaster(t), EncodeOptions{}))

	mat, err := ReadMat(src)
	require.NoError(t, err)
	defer mat.Close()

	shape, sampleType, err := MatShape(mat)
	require.NoError(t, err)
	assert.Equal(t, Shape{Height: 80, Width: 100, Channels: 3}, shape)
	assert.Equal(t, Uint8, sampleType)

	out := filepath.Join(dir, "nested", "out.png")
	require.NoError(t, WriteMat(out, mat))

	again, err := ReadMat(out)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, ComputeMatChecksum(mat), ComputeMatChecksum(again))
}

func TestReadMatMissing(t *testing.T) {
	mat, err := ReadMat(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.True(t, mat.Empty())
	mat.Close()
}

func TestZerosLikeMat(t *testing.T) {
	mat := gocv.NewMatWithSizeWithScalar(12, 20, gocv.MatTypeCV16UC3, gocv.NewScalar(1000, 2000, 3000, 0))
	defer mat.Close()

	zeros := ZerosLikeMat(mat)
	defer zeros.Close()

	assert.Equal(t, mat.Rows(), zeros.Rows())
	assert.Equal(t, mat.Cols(), zeros.Cols())
	assert.Equal(t, mat.Type(), zeros.Type())
	for _, b := range zeros.ToBytes() {
		if !assert.Zero(t, b) {
			break
		}
	}

	shape, sampleType, err := MatShape(zeros)
	require.NoError(t, err)
	assert.Equal(t, Shape{Height: 12, Width: 20, Channels: 3}, shape)
	assert.Equal(t, Uint16, sampleType)
}

func TestResizeMat(t *testing.T) {
	mat := gocv.NewMatWithSize(80, 100, gocv.MatTypeCV8UC1)
	defer mat.Close()

	resized, err := ResizeMat(mat, Size{Width: 400, Height: 400})
	require.NoError(t, err)
	defer resized.Close()
	assert.Equal(t, 400, resized.Rows())
	assert.Equal(t, 400, resized.Cols())
	assert.Equal(t, mat.Type(), resized.Type())

	_, err = ResizeMat(mat, Size{})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestWriteMatErrors(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.ErrorIs(t, WriteMat(filepath.Join(t.TempDir(), "x.png"), empty), ErrEmptyImage)

	mat := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer mat.Close()
	assert.ErrorIs(t, WriteMat(filepath.Join(t.TempDir(), "x.xyz"), mat), ErrUnsupportedFormat)
}

func TestComputeMatChecksumEmpty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.Equal(t, "empty", ComputeMatChecksum(empty))
}

func TestComputeMatChecksumMatchesRaster(t *testing.T) {
	gray, err := NewRaster(Shape{Height: 3, Width: 4, Channels: 1}, Uint8)
	require.NoError(t, err)
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 17)
	}
	mat, err := gocv.NewMatFromBytes(3, 4, gocv.MatTypeCV8UC1, gray.Pix)
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, Checksum(gray), ComputeMatChecksum(mat))

	deep, err := NewRaster(Shape{Height: 5, Width: 6, Channels: 1}, Uint16)
	require.NoError(t, err)
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			deep.Set(y, x, 0, uint16(y*6000+x*300+1))
		}
	}
	path := filepath.Join(t.TempDir(), "deep.png")
	require.NoError(t, WriteFile(path, deep, EncodeOptions{}))

	deepMat, err := ReadMat(path)
	require.NoError(t, err)
	defer deepMat.Close()
	assert.Equal(t, Checksum(deep), ComputeMatChecksum(deepMat))
}
