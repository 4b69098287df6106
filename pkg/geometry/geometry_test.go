package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestComputeCropRectScenario(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}

	assert.Equal(t, 0.25, FitScale(container, natural))

	displayed := DisplayedImageRect(container, natural, Identity())
	assert.Equal(t, Rect{Left: 0, Top: 50, Width: 400, Height: 300}, displayed)

	ov := OverlayRect(container, CircleOverlay(200))
	assert.Equal(t, Rect{Left: 100, Top: 100, Width: 200, Height: 200}, ov)

	crop, err := ComputeCropRect(container, natural, Identity(), CircleOverlay(200))
	require.NoError(t, err)
	assert.Equal(t, CropRect{OriginX: 400, OriginY: 200, Width: 800, Height: 800}, crop)
}

func TestDisplayedImageRectIdentityIsContainFit(t *testing.T) {
	cases := []struct {
		name      string
		container ContainerFrame
		natural   NaturalSize
	}{
		{"landscape in square", ContainerFrame{400, 400}, NaturalSize{1600, 1200}},
		{"portrait in square", ContainerFrame{400, 400}, NaturalSize{1200, 1600}},
		{"wide container", ContainerFrame{1024, 300}, NaturalSize{500, 500}},
		{"tall container", ContainerFrame{320, 900}, NaturalSize{4032, 3024}},
		{"tiny image", ContainerFrame{375, 667}, NaturalSize{3, 7}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := DisplayedImageRect(tc.container, tc.natural, Identity())

			assert.LessOrEqual(t, r.Width, tc.container.Width+eps)
			assert.LessOrEqual(t, r.Height, tc.container.Height+eps)
			fitsWidth := abs(r.Width-tc.container.Width) < eps
			fitsHeight := abs(r.Height-tc.container.Height) < eps
			assert.True(t, fitsWidth || fitsHeight, "one axis must touch the container: %+v", r)

			cx, cy := r.Center()
			assert.InDelta(t, tc.container.Width/2, cx, eps)
			assert.InDelta(t, tc.container.Height/2, cy, eps)
		})
	}
}

func TestZeroValueTransformBehavesLikeIdentity(t *testing.T) {
	container := ContainerFrame{Width: 300, Height: 500}
	natural := NaturalSize{Width: 640, Height: 480}
	assert.Equal(t,
		DisplayedImageRect(container, natural, Identity()),
		DisplayedImageRect(container, natural, ViewTransform{}),
	)
}

func TestDisplayedImageRectAppliesPanAndZoom(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}

	r := DisplayedImageRect(container, natural, ViewTransform{OffsetX: 10, OffsetY: -20, Scale: 2})
	assert.Equal(t, Rect{Left: -200 + 10, Top: -100 - 20, Width: 800, Height: 600}, r)
}

func TestOverlayRectRectangle(t *testing.T) {
	// Width-limited: 360 wide, 360/2.35 tall fits inside 0.9*400
	r := OverlayRect(ContainerFrame{400, 400}, RectangleOverlay(470.0/200.0, 0))
	assert.InDelta(t, 360, r.Width, eps)
	assert.InDelta(t, 360/2.35, r.Height, eps)
	assert.InDelta(t, 20, r.Left, eps)

	// Height-limited: a tall ratio in a wide container
	r = OverlayRect(ContainerFrame{1000, 200}, RectangleOverlay(0.5, 0.5))
	assert.InDelta(t, 100, r.Height, eps)
	assert.InDelta(t, 50, r.Width, eps)
	assert.InDelta(t, 475, r.Left, eps)
	assert.InDelta(t, 50, r.Top, eps)
}

func TestOverlayRectNeverExceedsFillFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		container := ContainerFrame{Width: 1 + rng.Float64()*2000, Height: 1 + rng.Float64()*2000}
		fill := 0.05 + rng.Float64()*0.95
		aspect := 0.05 + rng.Float64()*20

		r := OverlayRect(container, RectangleOverlay(aspect, fill))
		require.LessOrEqual(t, r.Width, container.Width*fill+eps, "container=%+v aspect=%g fill=%g", container, aspect, fill)
		require.LessOrEqual(t, r.Height, container.Height*fill+eps, "container=%+v aspect=%g fill=%g", container, aspect, fill)
		require.InDelta(t, aspect, r.Width/r.Height, 1e-6)
	}
}

func TestComputeCropRectStaysInsideImage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := ZoomRange{Min: 0.2, Max: 5}

	for i := 0; i < 5000; i++ {
		container := ContainerFrame{Width: 1 + rng.Float64()*1500, Height: 1 + rng.Float64()*1500}
		natural := NaturalSize{Width: 1 + rng.Intn(6000), Height: 1 + rng.Intn(6000)}
		transform := Identity()
		transform.ApplyPan(rng.Float64()*2000-1000, rng.Float64()*2000-1000)
		transform.SetScale(rng.Float64()*6, r)

		var overlay OverlaySpec
		switch rng.Intn(3) {
		case 0:
			overlay = CircleOverlay(1 + rng.Float64()*800)
		case 1:
			overlay = SquareOverlay(1 + rng.Float64()*800)
		default:
			overlay = RectangleOverlay(0.1+rng.Float64()*5, rng.Float64())
		}

		crop, err := ComputeCropRect(container, natural, transform, overlay)
		require.NoError(t, err)
		require.GreaterOrEqual(t, crop.OriginX, 0)
		require.GreaterOrEqual(t, crop.OriginY, 0)
		require.GreaterOrEqual(t, crop.Width, 1)
		require.GreaterOrEqual(t, crop.Height, 1)
		require.LessOrEqual(t, crop.OriginX+crop.Width, natural.Width, "crop %v natural %+v", crop, natural)
		require.LessOrEqual(t, crop.OriginY+crop.Height, natural.Height, "crop %v natural %+v", crop, natural)
	}
}

func TestComputeCropRectPanOutsideImage(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}

	// Image pushed far right: the overlay sits left of the image
	crop, err := ComputeCropRect(container, natural, ViewTransform{OffsetX: 5000, Scale: 1}, CircleOverlay(200))
	require.NoError(t, err)
	assert.Equal(t, 0, crop.OriginX)
	assert.Equal(t, 800, crop.Width)

	// Image pushed far left: origin pins to the last column
	crop, err = ComputeCropRect(container, natural, ViewTransform{OffsetX: -5000, Scale: 1}, CircleOverlay(200))
	require.NoError(t, err)
	assert.Equal(t, 1599, crop.OriginX)
	assert.Equal(t, 1, crop.Width)
}

func TestComputeCropRectZoomedIn(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}

	crop, err := ComputeCropRect(container, natural, ViewTransform{Scale: 2}, SquareOverlay(200))
	require.NoError(t, err)
	// displayed 800x600 at (-200,-100); overlay at (100,100)
	assert.Equal(t, CropRect{OriginX: 600, OriginY: 400, Width: 400, Height: 400}, crop)
}

func TestComputeCropRectMissingInputs(t *testing.T) {
	_, err := ComputeCropRect(ContainerFrame{}, NaturalSize{100, 100}, Identity(), CircleOverlay(50))
	assert.ErrorIs(t, err, ErrUnmeasuredContainer)

	_, err = ComputeCropRect(ContainerFrame{100, 0}, NaturalSize{100, 100}, Identity(), CircleOverlay(50))
	assert.ErrorIs(t, err, ErrUnmeasuredContainer)

	_, err = ComputeCropRect(ContainerFrame{100, 100}, NaturalSize{}, Identity(), CircleOverlay(50))
	assert.ErrorIs(t, err, ErrUnknownNaturalSize)

	_, err = ComputeCropRect(ContainerFrame{100, 100}, NaturalSize{100, 100}, Identity(), CircleOverlay(0))
	assert.ErrorIs(t, err, ErrInvalidOverlay)
}

func TestOverlayValidate(t *testing.T) {
	assert.NoError(t, CircleOverlay(10).Validate())
	assert.NoError(t, RectangleOverlay(2, 0).Validate())
	assert.NoError(t, RectangleOverlay(2, 1).Validate())
	assert.ErrorIs(t, SquareOverlay(-1).Validate(), ErrInvalidOverlay)
	assert.ErrorIs(t, RectangleOverlay(0, 0.5).Validate(), ErrInvalidOverlay)
	assert.ErrorIs(t, RectangleOverlay(1, 1.5).Validate(), ErrInvalidOverlay)
	assert.ErrorIs(t, OverlaySpec{Shape: Shape(9), Size: 1}.Validate(), ErrInvalidOverlay)
}

func TestParseShape(t *testing.T) {
	for _, s := range []Shape{Circle, Square, Rectangle} {
		got, err := ParseShape(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseShape("hexagon")
	assert.Error(t, err)
}

func TestViewTransformMutations(t *testing.T) {
	avatar := ZoomRange{Min: 0.5, Max: 3}
	banner := ZoomRange{Min: 0.2, Max: 5}

	tr := Identity()
	tr.ApplyPan(12, -4)
	tr.ApplyPan(3, 4)
	assert.Equal(t, 15.0, tr.OffsetX)
	assert.Equal(t, 0.0, tr.OffsetY)

	tr.ApplyZoom(2, avatar)
	assert.Equal(t, 2.0, tr.Scale)
	tr.ApplyZoom(10, avatar)
	assert.Equal(t, 3.0, tr.Scale)
	tr.ApplyZoom(10, banner)
	assert.Equal(t, 5.0, tr.Scale)
	tr.ApplyZoom(0.001, avatar)
	assert.Equal(t, 0.5, tr.Scale)
	tr.ApplyZoom(-1, avatar)
	assert.Equal(t, 0.5, tr.Scale, "non-positive factors are ignored")

	tr.SetScale(0.1, banner)
	assert.Equal(t, 0.2, tr.Scale)

	tr.Reset()
	assert.Equal(t, Identity(), tr)

	assert.Equal(t, 1.0, ViewTransform{OffsetX: 3}.Clamped(avatar).Scale)
	assert.Equal(t, ViewTransform{OffsetX: 3, Scale: 3}, ViewTransform{OffsetX: 3, Scale: 9}.Clamped(avatar))
}

func TestZoomRangeValidate(t *testing.T) {
	assert.NoError(t, ZoomRange{Min: 0.5, Max: 3}.Validate())
	assert.NoError(t, ZoomRange{Min: 1, Max: 1}.Validate())
	assert.Error(t, ZoomRange{Min: 0, Max: 3}.Validate())
	assert.Error(t, ZoomRange{Min: 3, Max: 1}.Validate())
}

func TestFrameSubjectCentersSubjectUnderOverlay(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}
	overlay := CircleOverlay(200)
	subject := Subject{CenterX: 0.25, CenterY: 0.5, Width: 0.1, Height: 0.1}

	tr := FrameSubject(container, natural, overlay, subject, ZoomRange{Min: 0.2, Max: 5})
	assert.InDelta(t, 5.0, tr.Scale, eps)

	d := DisplayedImageRect(container, natural, tr)
	px := d.Left + subject.CenterX*d.Width
	py := d.Top + subject.CenterY*d.Height
	ovX, ovY := OverlayRect(container, overlay).Center()
	assert.InDelta(t, ovX, px, 1e-6)
	assert.InDelta(t, ovY, py, 1e-6)
}

func TestFrameSubjectClampsScale(t *testing.T) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 1600, Height: 1200}

	tr := FrameSubject(container, natural, CircleOverlay(200), Subject{CenterX: 0.5, CenterY: 0.5, Width: 0.01, Height: 0.01}, ZoomRange{Min: 0.5, Max: 3})
	assert.Equal(t, 3.0, tr.Scale)
	assert.InDelta(t, 0, tr.OffsetX, eps)
	assert.InDelta(t, 0, tr.OffsetY, eps)

	tr = FrameSubject(container, NaturalSize{}, CircleOverlay(200), Subject{CenterX: 0.1, CenterY: 0.1}, ZoomRange{Min: 0.5, Max: 3})
	assert.Equal(t, Identity(), tr)
}

func TestCropRectRectangle(t *testing.T) {
	c := CropRect{OriginX: 4, OriginY: 5, Width: 10, Height: 20}
	r := c.Rectangle()
	assert.Equal(t, 4, r.Min.X)
	assert.Equal(t, 25, r.Max.Y)
	assert.Equal(t, "10x20+4+5", c.String())
	assert.False(t, c.IsEmpty())
	assert.True(t, CropRect{}.IsEmpty())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func BenchmarkComputeCropRect(b *testing.B) {
	container := ContainerFrame{Width: 400, Height: 400}
	natural := NaturalSize{Width: 4032, Height: 3024}
	tr := ViewTransform{OffsetX: 13, OffsetY: -7, Scale: 1.7}
	overlay := RectangleOverlay(470.0/200.0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeCropRect(container, natural, tr, overlay)
	}
}
