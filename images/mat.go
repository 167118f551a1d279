package images

import (
	"encoding/binary"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ReadMat loads the image at path with OpenCV, keeping its depth and channel count.
//
// Arguments:
//   - path: The image path.
//
// Returns:
//   - gocv.Mat: The loaded image. The caller owns it and must Close it.
//   - error: An error if the file could not be read or decoded.
func ReadMat(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Wrapf(ErrEmptyImage, "failed to read %s", path)
	}
	return mat, nil
}

// WriteMat encodes mat to path. OpenCV picks the encoder from the extension;
// params are passed through as IMWrite flag/value pairs.
func WriteMat(path string, mat gocv.Mat, params ...int) error {
	if mat.Empty() {
		return errors.Wrap(ErrEmptyImage, "nothing to write")
	}
	if _, err := FormatFromPath(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	var ok bool
	if len(params) == 0 {
		ok = gocv.IMWrite(path, mat)
	} else {
		ok = gocv.IMWriteWithParams(path, mat, params)
	}
	if !ok {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}

// ResizeMat resizes mat to size using linear interpolation.
func ResizeMat(mat gocv.Mat, size Size) (gocv.Mat, error) {
	if err := size.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	if mat.Empty() {
		return gocv.NewMat(), errors.Wrap(ErrEmptyImage, "nothing to resize")
	}

	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, image.Pt(size.Width, size.Height), 0, 0, gocv.InterpolationLinear)
	if resized.Empty() {
		resized.Close()
		return gocv.NewMat(), errors.New("failed to resize image")
	}
	return resized, nil
}

// ZerosLikeMat allocates a Mat with the rows, columns and type of mat and every element zero.
func ZerosLikeMat(mat gocv.Mat) gocv.Mat {
	return gocv.NewMatWithSizeWithScalar(mat.Rows(), mat.Cols(), mat.Type(), gocv.NewScalar(0, 0, 0, 0))
}

// MatShape reports the raster shape and sample type of mat.
func MatShape(mat gocv.Mat) (Shape, SampleType, error) {
	shape := Shape{Height: mat.Rows(), Width: mat.Cols(), Channels: mat.Channels()}
	switch gocv.MatType(int(mat.Type()) & 7) {
	case gocv.MatTypeCV8U:
		return shape, Uint8, nil
	case gocv.MatTypeCV16U:
		return shape, Uint16, nil
	default:
		return shape, 0, errors.Errorf("unsupported mat type: %v", mat.Type())
	}
}

// ComputeMatChecksum hashes mat the way Checksum hashes a raster. 16-bit
// samples are hashed big-endian, so a gray Mat and the raster decoded from the
// same file agree. Colour Mats keep OpenCV's BGR order and do not.
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}
	shape, sampleType, err := MatShape(mat)
	if err != nil {
		return "unsupported"
	}

	pix := mat.ToBytes()
	if sampleType == Uint16 {
		swapped := make([]byte, len(pix))
		for i := 0; i+1 < len(pix); i += 2 {
			v := binary.NativeEndian.Uint16(pix[i:])
			binary.BigEndian.PutUint16(swapped[i:], v)
		}
		pix = swapped
	}
	return checksum(shape, sampleType, pix)
}
