package geometry

import "fmt"

// Shape identifies the crop guide outline
type Shape int

const (
	Circle Shape = iota
	Square
	Rectangle
)

// DefaultFillFraction is used by rectangle overlays that leave FillFraction unset
const DefaultFillFraction = 0.9

var shapeNames = map[Shape]string{
	Circle:    "circle",
	Square:    "square",
	Rectangle: "rectangle",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape converts a shape name into a Shape
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown overlay shape %q", name)
}

// OverlaySpec describes the fixed crop target shown over the image.
//
// Circle and Square use Size (diameter or side, container pixels). Rectangle uses
// AspectRatio (width/height) and FillFraction of the limiting container dimension.
type OverlaySpec struct {
	Shape        Shape
	Size         float64
	AspectRatio  float64
	FillFraction float64
}

// CircleOverlay returns a circular overlay of the given diameter
func CircleOverlay(size float64) OverlaySpec {
	return OverlaySpec{Shape: Circle, Size: size}
}

// SquareOverlay returns a square overlay of the given side
func SquareOverlay(size float64) OverlaySpec {
	return OverlaySpec{Shape: Square, Size: size}
}

// RectangleOverlay returns a rectangular overlay; fill 0 selects DefaultFillFraction
func RectangleOverlay(aspectRatio, fill float64) OverlaySpec {
	return OverlaySpec{Shape: Rectangle, AspectRatio: aspectRatio, FillFraction: fill}
}

func (o OverlaySpec) fill() float64 {
	if o.FillFraction == 0 {
		return DefaultFillFraction
	}
	return o.FillFraction
}

// Validate checks the overlay parameters for its shape
func (o OverlaySpec) Validate() error {
	switch o.Shape {
	case Circle, Square:
		if o.Size <= 0 {
			return fmt.Errorf("%w: %s size must be positive, got %g", ErrInvalidOverlay, o.Shape, o.Size)
		}
	case Rectangle:
		if o.AspectRatio <= 0 {
			return fmt.Errorf("%w: aspect ratio must be positive, got %g", ErrInvalidOverlay, o.AspectRatio)
		}
		if f := o.fill(); f <= 0 || f > 1 {
			return fmt.Errorf("%w: fill fraction must be in (0,1], got %g", ErrInvalidOverlay, f)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOverlay, o.Shape)
	}
	return nil
}

// OverlayRect returns the on-screen rectangle of the overlay, centered in the container.
//
// Rectangles are sized width-first; when that height exceeds the height budget the
// overlay is height-limited instead, so it never exceeds FillFraction of either side.
func OverlayRect(container ContainerFrame, overlay OverlaySpec) Rect {
	var w, h float64
	switch overlay.Shape {
	case Rectangle:
		fill := overlay.fill()
		w = container.Width * fill
		h = w / overlay.AspectRatio
		if h > container.Height*fill {
			h = container.Height * fill
			w = h * overlay.AspectRatio
		}
	default:
		w, h = overlay.Size, overlay.Size
	}

	return Rect{
		Left:   (container.Width - w) / 2,
		Top:    (container.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}
