package geometry

import "fmt"

// ZoomRange bounds the user-controlled scale
type ZoomRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Validate checks that the range is positive and ordered
func (z ZoomRange) Validate() error {
	if z.Min <= 0 || z.Max < z.Min {
		return fmt.Errorf("invalid zoom range %g..%g", z.Min, z.Max)
	}
	return nil
}

// Clamp limits scale to the range
func (z ZoomRange) Clamp(scale float64) float64 {
	return clamp(scale, z.Min, z.Max)
}

// ViewTransform is the pan/zoom state applied around the fit-centered image position
type ViewTransform struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
}

// Identity returns the transform that leaves the image centered and contain-fit
func Identity() ViewTransform {
	return ViewTransform{Scale: 1}
}

// Reset restores the identity transform
func (t *ViewTransform) Reset() {
	*t = Identity()
}

// ApplyPan translates the image by dx, dy container pixels
func (t *ViewTransform) ApplyPan(dx, dy float64) {
	t.OffsetX += dx
	t.OffsetY += dy
}

// ApplyZoom multiplies the scale by factor and clamps it to r
func (t *ViewTransform) ApplyZoom(factor float64, r ZoomRange) {
	if factor <= 0 {
		return
	}
	t.SetScale(t.scale()*factor, r)
}

// SetScale sets an absolute scale clamped to r
func (t *ViewTransform) SetScale(scale float64, r ZoomRange) {
	t.Scale = r.Clamp(scale)
}

// scale treats an unset Scale as 1 so a zero-value transform behaves like Identity
func (t ViewTransform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}

// Clamped returns a copy with its scale clamped to r; an unset Scale counts as 1
func (t ViewTransform) Clamped(r ZoomRange) ViewTransform {
	t.Scale = r.Clamp(t.scale())
	return t
}
