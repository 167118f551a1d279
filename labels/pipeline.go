// Package labels writes a dataset image together with a placeholder label mask:
// an all-zero image with the same shape as the image.
package labels

import (
	"context"

	"github.com/nvr-ai/blanklabel/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Job names the input image and the two output paths.
type Job struct {
	// Input is the image to read.
	Input string `json:"input"`
	// Image is where the (possibly resized) image is written.
	Image string `json:"image"`
	// Mask is where the zero mask is written.
	Mask string `json:"mask"`
}

// Result describes what a Job wrote.
type Result struct {
	// Shape is the shape of both outputs.
	Shape images.Shape `json:"shape"`
	// Resized is true when the image was resized before writing.
	Resized bool `json:"resized"`
	// ImageChecksum is the checksum of the written image samples.
	ImageChecksum string `json:"imageChecksum"`
	// MaskChecksum is the checksum of the written mask samples.
	MaskChecksum string `json:"maskChecksum"`
}

// Pipeline reads an image, optionally resizes it, and writes it with a zero mask.
type Pipeline struct {
	config  Config
	backend Backend
	logger  *zap.Logger
}

// NewPipeline validates cfg and returns a Pipeline using the configured backend.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - logger: The logger. A nil logger disables logging.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: An error if cfg is invalid.
func NewPipeline(cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:  cfg,
		backend: backend,
		logger:  logger.With(zap.String("backend", backend.Name())),
	}, nil
}

// Run executes job. The context is checked between steps; frames are
// released on every return path.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	log := p.logger.With(zap.String("input", job.Input))

	log.Debug("Reading image")
	frame, err := p.backend.Read(job.Input)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read image")
	}
	defer frame.Close()
	log.Debug("Image read", zap.Stringer("shape", frame.Shape()))

	var result Result
	if p.config.Resize != nil {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		resized, err := p.backend.Resize(frame, *p.config.Resize)
		if err != nil {
			return Result{}, errors.Wrapf(err, "failed to resize image to %s", p.config.Resize)
		}
		defer resized.Close()
		log.Debug("Image resized", zap.Stringer("from", frame.Shape()), zap.Stringer("to", resized.Shape()))
		frame = resized
		result.Resized = true
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := p.backend.Write(job.Image, frame); err != nil {
		return Result{}, errors.Wrapf(err, "failed to write image to %s", job.Image)
	}
	log.Debug("Image written", zap.String("path", job.Image))

	mask, err := p.backend.ZerosLike(frame)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create mask")
	}
	defer mask.Close()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := p.backend.Write(job.Mask, mask); err != nil {
		return Result{}, errors.Wrapf(err, "failed to write mask to %s", job.Mask)
	}
	log.Debug("Mask written", zap.String("path", job.Mask))

	result.Shape = frame.Shape()
	result.ImageChecksum = frame.Checksum()
	result.MaskChecksum = mask.Checksum()

	log.Info("Label pair written",
		zap.String("image", job.Image),
		zap.String("mask", job.Mask),
		zap.Stringer("shape", result.Shape),
		zap.Bool("resized", result.Resized),
		zap.String("imageChecksum", result.ImageChecksum),
		zap.String("maskChecksum", result.MaskChecksum))

	return result, nil
}
