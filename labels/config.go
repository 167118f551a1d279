package labels

import (
	"github.com/nvr-ai/blanklabel/images"
	"github.com/pkg/errors"
)

// Config configures a Pipeline.
type Config struct {
	// Backend selects the image backend ("native", "opencv" or "vips").
	Backend string `json:"backend"`
	// Resize, when set, scales the image before it and its mask are written.
	Resize *images.Size `json:"resize,omitempty"`
	// Filter is the resample filter used by the native backend.
	Filter images.ResampleFilter `json:"filter"`
	// JPEGQuality is used when an output path has a JPEG extension.
	JPEGQuality int `json:"jpegQuality"`
}

// DefaultConfig returns a configuration that writes the input unchanged.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendNative,
		Filter:      images.Lanczos3Filter,
		JPEGQuality: 75,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, ok := backends[c.Backend]; !ok {
		return errors.Wrapf(ErrUnknownBackend, "%q", c.Backend)
	}
	if c.Resize != nil {
		if err := c.Resize.Validate(); err != nil {
			return errors.Wrap(err, "resize")
		}
	}
	if _, err := images.ParseResampleFilter(string(c.Filter)); err != nil {
		return err
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.Errorf("jpeg quality must be in 1..100, got %d", c.JPEGQuality)
	}
	return nil
}
