// Package framing proposes an initial pan/zoom so the subject of a photo starts
// under the crop guide. Users still adjust the result by hand.
package framing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/pkg/client"
	"github.com/homebuddy/cropkit/pkg/geometry"
	"github.com/homebuddy/cropkit/pkg/types"
)

// DefaultPrompt asks a vision model for the subject box of a profile or banner photo
const DefaultPrompt = `You are an image subject locator for profile photos and banners.

Return JSON only:
{
  "subject": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  }
}

RULES
- All coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- Prefer a human face; else a person; else a pet; else the most central salient object.
- The box should tightly include that subject.
- If no subject is found, return confidence 0.0 and box {"x":0.25,"y":0.25,"w":0.5,"h":0.5}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Locator finds the subject of an image as a normalized box
type Locator interface {
	Locate(ctx context.Context, img image.Image) (types.Box, error)
}

// Suggest returns the transform that frames the located subject under the overlay.
// Locator errors are returned together with the identity transform.
func Suggest(ctx context.Context, loc Locator, img image.Image, container geometry.ContainerFrame, overlay geometry.OverlaySpec, zoom geometry.ZoomRange) (geometry.ViewTransform, error) {
	box, err := loc.Locate(ctx, img)
	if err != nil {
		return geometry.Identity(), fmt.Errorf("failed to locate subject: %w", err)
	}

	b := img.Bounds()
	natural := geometry.NaturalSize{Width: b.Dx(), Height: b.Dy()}
	cx, cy := box.Center()
	subject := geometry.Subject{CenterX: cx, CenterY: cy, Width: box.W, Height: box.H}

	return geometry.FrameSubject(container, natural, overlay, subject, zoom), nil
}

// VisionLocator asks a vision model where the subject is
type VisionLocator struct {
	Client        client.VisionClient
	Model         string
	Prompt        string
	SendSize      int     // max long side sent to the model, 0 = original
	SendQuality   int     // JPEG quality of the image sent to the model
	MinConfidence float64 // detections below this fall back to a centered box
	Logger        *zap.Logger
}

// Locate implements Locator
func (v *VisionLocator) Locate(ctx context.Context, img image.Image) (types.Box, error) {
	logger := v.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prompt := v.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	imgB64, err := PrepareImageForModel(img, v.SendSize, v.SendQuality)
	if err != nil {
		return types.Box{}, err
	}

	det, err := v.Client.DetectSubject(ctx, v.Model, prompt, imgB64)
	if err != nil {
		return types.Box{}, err
	}

	if det.Fallback || det.Subject.Confidence < v.MinConfidence {
		logger.Info("low confidence subject, using centered box",
			zap.String("label", det.Subject.Label),
			zap.Float64("confidence", det.Subject.Confidence))
		return types.CenteredBox, nil
	}

	logger.Debug("subject located",
		zap.String("label", det.Subject.Label),
		zap.Float64("confidence", det.Subject.Confidence),
		zap.Any("box", det.Subject.Box))
	return det.Subject.Box, nil
}

// PrepareImageForModel downsizes img to maxDim on its long side and returns it as base64 JPEG
func PrepareImageForModel(img image.Image, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		}
	}
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("failed to encode image for model: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
