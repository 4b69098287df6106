package cropkit

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/geometry"
	"github.com/homebuddy/cropkit/pkg/session"
	"github.com/homebuddy/cropkit/pkg/types"
)

// createTestImage creates a square image whose top-left quadrant is red and the rest blue
func createTestImage(t *testing.T, dir string, size int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 && y < size/2 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	p := filepath.Join(dir, "photo.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return p
}

type fixedLocator types.Box

func (f fixedLocator) Locate(ctx context.Context, img image.Image) (types.Box, error) {
	return types.Box(f), nil
}

func avatarRequest(uri string) Request {
	return Request{
		URI:       uri,
		Container: geometry.ContainerFrame{Width: 400, Height: 400},
		Transform: geometry.Identity(),
		Config: session.Config{
			Overlay: geometry.CircleOverlay(200),
			Zoom:    geometry.ZoomRange{Min: 0.5, Max: 3},
		},
		Options: codec.Options{CompressQuality: 1, Format: codec.PNG},
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}

func TestCropWritesCenteredCrop(t *testing.T) {
	dir := t.TempDir()
	src := createTestImage(t, dir, 400)
	cropper := NewCropper(codec.Config{OutputDir: dir}, nil)

	res, err := cropper.Crop(context.Background(), avatarRequest(src))
	require.NoError(t, err)
	require.NoError(t, res.Warning)
	assert.True(t, res.Cropped)
	assert.Equal(t, geometry.CropRect{OriginX: 100, OriginY: 100, Width: 200, Height: 200}, res.Rect)
	require.NotNil(t, res.Encoded)
	assert.Equal(t, 200, res.Encoded.Width)
	assert.Equal(t, 200, res.Encoded.Height)
	assert.NotEqual(t, src, res.URI)
	assert.FileExists(t, res.URI)
}

func TestCropWithLocator(t *testing.T) {
	dir := t.TempDir()
	src := createTestImage(t, dir, 400)
	cropper := NewCropper(codec.Config{OutputDir: dir}, nil)

	req := avatarRequest(src)
	req.Locator = fixedLocator{X: 0.2, Y: 0.2, W: 0.1, H: 0.1}
	res, err := cropper.Crop(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Cropped)

	assert.LessOrEqual(t, res.Rect.OriginX+res.Rect.Width, 200)
	assert.LessOrEqual(t, res.Rect.OriginY+res.Rect.Height, 200)

	f, err := os.Open(res.URI)
	require.NoError(t, err)
	defer f.Close()
	out, err := png.Decode(f)
	require.NoError(t, err)
	r, g, b, _ := out.At(out.Bounds().Dx()/2, out.Bounds().Dy()/2).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})
}

func TestCropMissingImageReturnsOriginal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	cropper := NewCropper(codec.Config{OutputDir: t.TempDir()}, nil)

	res, err := cropper.Crop(context.Background(), avatarRequest(missing))
	require.NoError(t, err)
	assert.False(t, res.Cropped)
	assert.Equal(t, missing, res.URI)
}

func TestCropRejectsInvalidConfig(t *testing.T) {
	req := avatarRequest("photo.png")
	req.Config.Zoom = geometry.ZoomRange{}
	_, err := NewCropper(codec.Config{}, nil).Crop(context.Background(), req)
	assert.Error(t, err)
}

func TestRect(t *testing.T) {
	dir := t.TempDir()
	src := createTestImage(t, dir, 800)
	cropper := NewCropper(codec.Config{OutputDir: dir}, nil)

	req := avatarRequest(src)
	req.Transform = geometry.ViewTransform{Scale: 2}
	rect, err := cropper.Rect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, geometry.CropRect{OriginX: 300, OriginY: 300, Width: 200, Height: 200}, rect)

	_, err = cropper.Rect(context.Background(), avatarRequest(filepath.Join(dir, "nope.png")))
	assert.Error(t, err)
}
