// Package session holds the state of one crop interaction, from picking an image to
// confirming or cancelling the crop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/geometry"
)

var (
	// ErrClosed is returned by operations on a confirmed or cancelled session
	ErrClosed = errors.New("session: closed")
	// ErrCodecFailure marks a crop that fell back to the original image
	ErrCodecFailure = errors.New("session: crop failed, using original image")
)

// Prober fetches the natural size of an image
type Prober interface {
	ProbeNaturalSize(ctx context.Context, uri string) (geometry.NaturalSize, error)
}

// Encoder performs the pixel crop and re-encode
type Encoder interface {
	CropAndEncode(ctx context.Context, uri string, rect geometry.CropRect, opts codec.Options) (codec.EncodeResult, error)
}

// Config describes the crop target for a session
type Config struct {
	Overlay geometry.OverlaySpec
	Zoom    geometry.ZoomRange
}

// Validate checks the overlay and zoom range
func (c Config) Validate() error {
	if err := c.Overlay.Validate(); err != nil {
		return err
	}
	return c.Zoom.Validate()
}

// Result is the outcome of Confirm. URI is always usable: either the crop or the
// original image. Warning is set when a crop was attempted and failed.
type Result struct {
	URI     string
	Cropped bool
	Rect    geometry.CropRect
	Encoded *codec.EncodeResult
	Warning error
}

// Session tracks container layout, natural size and pan/zoom for one source image
type Session struct {
	mu        sync.Mutex
	uri       string
	config    Config
	container geometry.ContainerFrame
	natural   geometry.NaturalSize
	transform geometry.ViewTransform
	closed    bool
	logger    *zap.Logger
}

// New starts a session for uri with an identity transform
func New(uri string, config Config, logger *zap.Logger) (*Session, error) {
	if uri == "" {
		return nil, fmt.Errorf("session: empty image uri")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		uri:       uri,
		config:    config,
		transform: geometry.Identity(),
		logger:    logger.With(zap.String("uri", uri)),
	}, nil
}

// URI returns the source image
func (s *Session) URI() string { return s.uri }

// Config returns the overlay and zoom range of the session
func (s *Session) Config() Config { return s.config }

// SetContainer records the latest layout of the preview container
func (s *Session) SetContainer(frame geometry.ContainerFrame) error {
	return s.update(func() { s.container = frame })
}

// SetNaturalSize records a natural size obtained elsewhere
func (s *Session) SetNaturalSize(size geometry.NaturalSize) error {
	return s.update(func() { s.natural = size })
}

// LoadNaturalSize probes the source image once. A result that arrives after the
// session closed is discarded; probe errors leave the size unknown.
func (s *Session) LoadNaturalSize(ctx context.Context, prober Prober) (geometry.NaturalSize, error) {
	if s.isClosed() {
		return geometry.NaturalSize{}, ErrClosed
	}

	size, err := prober.ProbeNaturalSize(ctx, s.uri)
	if err != nil {
		s.logger.Warn("natural size unknown", zap.Error(err))
		size = geometry.NaturalSize{}
	}

	if uerr := s.update(func() { s.natural = size }); uerr != nil {
		s.logger.Debug("discarding probe result for closed session")
		return geometry.NaturalSize{}, uerr
	}
	return size, nil
}

// Pan moves the image by dx, dy container pixels
func (s *Session) Pan(dx, dy float64) error {
	return s.update(func() { s.transform.ApplyPan(dx, dy) })
}

// Zoom multiplies the scale by factor within the session zoom range
func (s *Session) Zoom(factor float64) error {
	return s.update(func() { s.transform.ApplyZoom(factor, s.config.Zoom) })
}

// SetScale sets an absolute scale within the session zoom range
func (s *Session) SetScale(scale float64) error {
	return s.update(func() { s.transform.SetScale(scale, s.config.Zoom) })
}

// SetTransform replaces the transform, clamping its scale to the session zoom range
func (s *Session) SetTransform(t geometry.ViewTransform) error {
	return s.update(func() { s.transform = t.Clamped(s.config.Zoom) })
}

// ResetTransform restores the identity transform
func (s *Session) ResetTransform() error {
	return s.update(func() { s.transform.Reset() })
}

// Snapshot is a consistent copy of the geometry inputs
type Snapshot struct {
	Container geometry.ContainerFrame
	Natural   geometry.NaturalSize
	Transform geometry.ViewTransform
	Overlay   geometry.OverlaySpec
}

// Snapshot returns the current geometry inputs
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Container: s.container,
		Natural:   s.natural,
		Transform: s.transform,
		Overlay:   s.config.Overlay,
	}
}

// Transform returns the current pan/zoom state
func (s *Session) Transform() geometry.ViewTransform {
	return s.Snapshot().Transform
}

// OverlayRect returns the crop guide rectangle for the current layout
func (s *Session) OverlayRect() geometry.Rect {
	snap := s.Snapshot()
	return geometry.OverlayRect(snap.Container, snap.Overlay)
}

// Crop computes the crop rectangle for the current state
func (s *Session) Crop() (geometry.CropRect, error) {
	snap := s.Snapshot()
	return geometry.ComputeCropRect(snap.Container, snap.Natural, snap.Transform, snap.Overlay)
}

// Confirm closes the session and crops the source image.
//
// When the layout or natural size is still unknown the original URI is returned
// without cropping. When the encoder fails or ctx is cancelled the original URI is
// returned with a Warning wrapping ErrCodecFailure.
func (s *Session) Confirm(ctx context.Context, enc Encoder, opts codec.Options) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, ErrClosed
	}
	s.closed = true
	snap := Snapshot{Container: s.container, Natural: s.natural, Transform: s.transform, Overlay: s.config.Overlay}
	s.mu.Unlock()

	rect, err := geometry.ComputeCropRect(snap.Container, snap.Natural, snap.Transform, snap.Overlay)
	if err != nil {
		s.logger.Info("skipping crop", zap.Error(err))
		return Result{URI: s.uri}, nil
	}

	encoded, err := enc.CropAndEncode(ctx, s.uri, rect, opts)
	if err != nil {
		warning := fmt.Errorf("%w: %w", ErrCodecFailure, err)
		s.logger.Warn("crop failed, falling back to original image",
			zap.Stringer("rect", rect),
			zap.Error(err))
		return Result{URI: s.uri, Rect: rect, Warning: warning}, nil
	}

	return Result{URI: encoded.URI, Cropped: true, Rect: rect, Encoded: &encoded}, nil
}

// Cancel closes the session without cropping
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the session has been confirmed or cancelled
func (s *Session) Closed() bool {
	return s.isClosed()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) update(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn()
	return nil
}
