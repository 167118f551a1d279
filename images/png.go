package images

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// PNG colour types from the IHDR chunk.
const (
	pngGrayAlpha = 4
	pngRGBA      = 6
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// pngChannels reads the colour type from a PNG header and returns the channel
// count it implies when the decoded colour model hides it. Zero means the
// colour model can be trusted.
func pngChannels(data []byte) int {
	if len(data) < 26 || !bytes.Equal(data[:8], pngSignature) || string(data[12:16]) != "IHDR" {
		return 0
	}
	switch data[25] {
	case pngGrayAlpha:
		return 2
	case pngRGBA:
		return 4
	default:
		return 0
	}
}

// encodeGrayAlphaPNG writes a two-channel raster as a gray+alpha PNG, which
// image/png never produces. Rows are stored unfiltered.
func encodeGrayAlphaPNG(w io.Writer, r *Raster) error {
	if r.Shape.Channels != 2 {
		return errors.Errorf("gray+alpha PNG needs 2 channels, got %d", r.Shape.Channels)
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:], uint32(r.Shape.Width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(r.Shape.Height))
	ihdr[8] = byte(8 * r.SampleType.Size())
	ihdr[9] = pngGrayAlpha

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	stride := r.Shape.Width * r.Shape.Channels * r.SampleType.Size()
	for y := 0; y < r.Shape.Height; y++ {
		if _, err := zw.Write([]byte{0}); err != nil {
			return errors.Wrap(err, "failed to compress row")
		}
		if _, err := zw.Write(r.Pix[y*stride : (y+1)*stride]); err != nil {
			return errors.Wrap(err, "failed to compress row")
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "failed to compress image data")
	}

	if _, err := w.Write(pngSignature); err != nil {
		return err
	}
	if err := writePNGChunk(w, "IHDR", ihdr[:]); err != nil {
		return err
	}
	if err := writePNGChunk(w, "IDAT", idat.Bytes()); err != nil {
		return err
	}
	return writePNGChunk(w, "IEND", nil)
}

func writePNGChunk(w io.Writer, kind string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], kind)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, b := range [][]byte{header[:], data, footer[:]} {
		if _, err := w.Write(b); err != nil {
			return errors.Wrapf(err, "failed to write %s chunk", kind)
		}
	}
	return nil
}
