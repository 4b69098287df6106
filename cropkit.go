// Package cropkit turns what a user sees in a crop preview into a cropped image.
//
// A preview shows the source image contain-fitted into a container, moved and scaled
// by the user, with a fixed crop guide (circle, square or rectangle) on top. The
// geometry package maps the guide back to source pixels, the session package tracks
// one interaction, and the codec package cuts and re-encodes the pixels.
//
// Basic usage:
//
//	cropper := cropkit.NewCropper(codec.DefaultConfig(), logger)
//	res, err := cropper.Crop(ctx, cropkit.Request{
//		URI:       "photo.jpg",
//		Container: geometry.ContainerFrame{Width: 400, Height: 400},
//		Transform: geometry.ViewTransform{OffsetX: -30, Scale: 1.5},
//		Config: session.Config{
//			Overlay: geometry.CircleOverlay(200),
//			Zoom:    geometry.ZoomRange{Min: 0.5, Max: 3},
//		},
//		Options: codec.Options{CompressQuality: 0.8, Format: codec.JPEG},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if res.Warning != nil {
//		log.Printf("using original image: %v", res.Warning)
//	}
//	fmt.Println(res.URI)
//
// Packages:
//
//  1. geometry (pkg/geometry): overlay layout, contain-fit, pan/zoom and crop rectangles
//  2. session (pkg/session): one crop interaction with confirm/cancel semantics
//  3. codec (pkg/codec): image loading, cropping and re-encoding
//  4. framing (pkg/framing): optional initial pan/zoom from saliency or a vision model
//  5. dob (pkg/dob): date-of-birth picker assembly
package cropkit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/framing"
	"github.com/homebuddy/cropkit/pkg/geometry"
	"github.com/homebuddy/cropkit/pkg/session"
)

// Version of the cropkit library
const Version = "1.0.0"

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

// Request describes a non-interactive crop: the layout and transform the user ended with
type Request struct {
	URI       string
	Container geometry.ContainerFrame
	Transform geometry.ViewTransform
	Config    session.Config
	Options   codec.Options

	// Locator, when set, replaces Transform with a suggested framing
	Locator framing.Locator
}

// Cropper runs a crop session end to end against a codec
type Cropper struct {
	codec  *codec.Codec
	logger *zap.Logger
}

// NewCropper creates a Cropper; a nil logger disables logging
func NewCropper(config codec.Config, logger *zap.Logger) *Cropper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cropper{
		codec:  codec.New(config, logger),
		logger: logger,
	}
}

// Codec returns the underlying codec
func (c *Cropper) Codec() *codec.Codec {
	return c.codec
}

// Crop opens a session for req, probes the image and confirms the crop.
// A failed crop is not an error: the result carries the original URI and a Warning.
func (c *Cropper) Crop(ctx context.Context, req Request) (session.Result, error) {
	s, err := session.New(req.URI, req.Config, c.logger)
	if err != nil {
		return session.Result{}, err
	}
	if err := s.SetContainer(req.Container); err != nil {
		return session.Result{}, err
	}

	transform := req.Transform
	if req.Locator != nil {
		transform = c.suggest(ctx, req)
	}
	if err := s.SetTransform(transform); err != nil {
		return session.Result{}, err
	}

	if _, err := s.LoadNaturalSize(ctx, c.codec); err != nil {
		return session.Result{}, err
	}

	return s.Confirm(ctx, c.codec, req.Options)
}

// Rect computes the crop rectangle for req without touching any pixels
func (c *Cropper) Rect(ctx context.Context, req Request) (geometry.CropRect, error) {
	natural, err := c.codec.ProbeNaturalSize(ctx, req.URI)
	if err != nil {
		return geometry.CropRect{}, fmt.Errorf("failed to probe %s: %w", req.URI, err)
	}
	t := req.Transform.Clamped(req.Config.Zoom)
	return geometry.ComputeCropRect(req.Container, natural, t, req.Config.Overlay)
}

func (c *Cropper) suggest(ctx context.Context, req Request) geometry.ViewTransform {
	img, err := c.codec.Load(ctx, req.URI)
	if err != nil {
		c.logger.Warn("framing skipped", zap.String("uri", req.URI), zap.Error(err))
		return req.Transform
	}
	t, err := framing.Suggest(ctx, req.Locator, img, req.Container, req.Config.Overlay, req.Config.Zoom)
	if err != nil {
		c.logger.Warn("framing failed", zap.String("uri", req.URI), zap.Error(err))
		return req.Transform
	}
	return t
}
