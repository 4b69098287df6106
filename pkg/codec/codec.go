// Package codec probes, crops and re-encodes images on behalf of a crop session.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/homebuddy/cropkit/internal/utils"
	"github.com/homebuddy/cropkit/pkg/geometry"
)

// ErrUnsupportedFormat is returned for output formats other than jpeg, png and webp
var ErrUnsupportedFormat = errors.New("codec: unsupported format")

// Format is an output encoding
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// ParseFormat accepts jpeg, jpg, png and webp in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg", "":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension used for the format
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Options control the encode step after cropping
type Options struct {
	CompressQuality float64 // in (0,1]; 0 selects DefaultCompressQuality
	Format          Format
	MaxWidth        int // downsize wider crops to this width; 0 keeps the crop size
}

// DefaultCompressQuality is used when Options.CompressQuality is unset
const DefaultCompressQuality = 0.8

// Quality maps a compress quality in (0,1] to an encoder quality in 1..100
func Quality(compress float64) int {
	if compress <= 0 {
		compress = DefaultCompressQuality
	}
	q := int(math.Round(compress * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// EncodeResult describes a written crop
type EncodeResult struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format Format `json:"format"`
	Bytes  int    `json:"bytes"`
}

// Config holds codec settings
type Config struct {
	OutputDir   string
	Prefix      string
	Suffix      string
	HTTPTimeout time.Duration
	UserAgent   string
}

// DefaultConfig returns the settings used by New when fields are left empty
func DefaultConfig() Config {
	return Config{
		OutputDir:   os.TempDir(),
		Suffix:      "_cropped",
		HTTPTimeout: 30 * time.Second,
		UserAgent:   "cropkit/1.0",
	}
}

// Codec loads images from paths, file:// URIs or http(s) URLs and writes crops
type Codec struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Codec; a nil logger disables logging
func New(config Config, logger *zap.Logger) *Codec {
	def := DefaultConfig()
	if config.OutputDir == "" {
		config.OutputDir = def.OutputDir
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = def.HTTPTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{
		config:     config,
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		logger:     logger,
	}
}

// ProbeNaturalSize reads the image header and returns its pixel dimensions
func (c *Codec) ProbeNaturalSize(ctx context.Context, uri string) (geometry.NaturalSize, error) {
	data, err := c.read(ctx, uri)
	if err != nil {
		c.logger.Debug("probe failed", zap.String("uri", uri), zap.Error(err))
		return geometry.NaturalSize{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		var werr error
		if cfg, werr = webp.DecodeConfig(bytes.NewReader(data)); werr != nil {
			c.logger.Debug("probe decode failed", zap.String("uri", uri), zap.Error(err))
			return geometry.NaturalSize{}, fmt.Errorf("failed to read image header: %w", err)
		}
	}
	return geometry.NaturalSize{Width: cfg.Width, Height: cfg.Height}, nil
}

// Load decodes the full image at uri
func (c *Codec) Load(ctx context.Context, uri string) (image.Image, error) {
	data, err := c.read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// CropAndEncode crops the image at uri to rect, encodes it and writes it to the output directory
func (c *Codec) CropAndEncode(ctx context.Context, uri string, rect geometry.CropRect, opts Options) (EncodeResult, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return EncodeResult{}, err
	}
	opts.Format = format
	if rect.IsEmpty() {
		return EncodeResult{}, fmt.Errorf("empty crop rectangle %s", rect)
	}

	img, err := c.Load(ctx, uri)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("failed to load image: %w", err)
	}

	cropped, err := Crop(img, rect, opts.MaxWidth)
	if err != nil {
		return EncodeResult{}, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cropped, opts); err != nil {
		return EncodeResult{}, fmt.Errorf("failed to encode crop: %w", err)
	}

	// Last chance to honour cancellation before anything lands on disk
	if err := ctx.Err(); err != nil {
		return EncodeResult{}, err
	}

	out, err := c.write(uri, opts.Format, buf.Bytes())
	if err != nil {
		return EncodeResult{}, err
	}

	b := cropped.Bounds()
	c.logger.Info("crop written",
		zap.String("source", uri),
		zap.String("output", out),
		zap.Stringer("rect", rect),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.String("format", string(opts.Format)))

	return EncodeResult{
		URI:    out,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: opts.Format,
		Bytes:  buf.Len(),
	}, nil
}

// Crop cuts rect out of img and downsizes the result to maxWidth when it is wider
func Crop(img image.Image, rect geometry.CropRect, maxWidth int) (image.Image, error) {
	bounds := img.Bounds()
	r := rect.Rectangle().Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("crop %s outside image %dx%d", rect, bounds.Dx(), bounds.Dy())
	}

	var out image.Image = imaging.Crop(img, r)
	if maxWidth > 0 && r.Dx() > maxWidth {
		out = imaging.Resize(out, maxWidth, 0, imaging.Lanczos)
	}
	return out, nil
}

// Encode writes img in the requested format
func Encode(w io.Writer, img image.Image, opts Options) error {
	q := Quality(opts.CompressQuality)
	switch opts.Format {
	case WebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(q)})
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case JPEG, "":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
}

func (c *Codec) write(source string, format Format, data []byte) (string, error) {
	if err := utils.EnsureDir(c.config.OutputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	target := utils.UniquePath(utils.GenerateOutputFilename(source, c.config.OutputDir, c.config.Prefix, c.config.Suffix, format.Ext()))

	tmp, err := os.CreateTemp(c.config.OutputDir, ".crop-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move output file into place: %w", err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return target, nil
	}
	return abs, nil
}

func (c *Codec) read(ctx context.Context, uri string) ([]byte, error) {
	if utils.IsRemote(uri) {
		return c.fetch(ctx, uri)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(utils.LocalPath(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

func (c *Codec) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// decode tries the registered decoders first and the libwebp decoder second
func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format: %w", err)
}
