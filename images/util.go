package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Checksum generates a deterministic checksum for a raster, covering its shape,
// sample type and samples.
//
// Arguments:
// - r: The raster to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := Checksum(mask)
//	fmt.Printf("Mask checksum: %s\n", checksum)
//
// ```
func Checksum(r *Raster) string {
	if r == nil || len(r.Pix) == 0 {
		return "empty"
	}
	return checksum(r.Shape, r.SampleType, r.Pix)
}

// checksum hashes a 16-byte big-endian header of height, width, channels and
// sample type followed by the samples.
func checksum(shape Shape, sampleType SampleType, pix []byte) string {
	var header [16]byte
	binary.BigEndian.PutUint32(header[0:], uint32(shape.Height))
	binary.BigEndian.PutUint32(header[4:], uint32(shape.Width))
	binary.BigEndian.PutUint32(header[8:], uint32(shape.Channels))
	binary.BigEndian.PutUint32(header[12:], uint32(sampleType))

	hash := md5.New()
	hash.Write(header[:])
	hash.Write(pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
