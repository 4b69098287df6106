package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/pkg/types"
)

// DefaultTimeout applies to requests whose context carries no deadline
const DefaultTimeout = 2 * time.Minute

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewClient creates a new Ollama client for the server at ollamaURL.
// Any path on the URL (such as /api/chat) is dropped.
func NewClient(ollamaURL string, logger *zap.Logger) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs a scheme and host", ollamaURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		logger:  logger,
		timeout: DefaultTimeout,
	}, nil
}

// DetectSubject sends the image and prompt to the model and parses the subject box
func (c *Client) DetectSubject(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	detection := ParseDetection(responseContent)
	if detection.Fallback {
		c.logger.Warn("vision model reply not usable, using centered subject",
			zap.String("model", model),
			zap.Int("reply_bytes", len(responseContent)))
	}
	return detection, nil
}

// ParseDetection parses a model reply. Replies that do not contain a usable JSON
// object yield a centered fallback detection instead of an error.
func ParseDetection(raw string) *types.Detection {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return fallbackDetection("no json found")
	}

	var result types.Detection
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fallbackDetection("parse error")
	}
	if result.Subject.Box.W <= 0 || result.Subject.Box.H <= 0 {
		return fallbackDetection("empty box")
	}

	result.Subject.Box = normalizeBox(result.Subject.Box)
	result.Subject.Label = strings.ToLower(strings.TrimSpace(result.Subject.Label))
	return &result
}

func fallbackDetection(label string) *types.Detection {
	return &types.Detection{
		Subject: types.Subject{
			Label:      label,
			Confidence: 0,
			Box:        types.CenteredBox,
		},
		Fallback: true,
	}
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// normalizeBox clamps the box into the unit square; boxes given in percent are rescaled
func normalizeBox(b types.Box) types.Box {
	if b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1 {
		b = types.Box{X: b.X / 100, Y: b.Y / 100, W: b.W / 100, H: b.H / 100}
	}
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
