package client

import (
	"context"

	"github.com/homebuddy/cropkit/pkg/types"
)

// VisionClient locates the subject of a base64-encoded image using a vision model
type VisionClient interface {
	DetectSubject(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error)
}
