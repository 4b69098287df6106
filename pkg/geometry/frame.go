package geometry

import "math"

// Subject is a region of interest in normalized image coordinates ([0,1] on both axes)
type Subject struct {
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// FrameSubject returns the transform that places the subject center under the overlay
// center and scales the subject to fit inside the overlay, clamped to r.
func FrameSubject(container ContainerFrame, natural NaturalSize, overlay OverlaySpec, subject Subject, r ZoomRange) ViewTransform {
	if CheckInputs(container, natural) != nil {
		return Identity()
	}

	ov := OverlayRect(container, overlay)
	fit := FitScale(container, natural)
	baseW := float64(natural.Width) * fit
	baseH := float64(natural.Height) * fit

	scale := 1.0
	if subject.Width > 0 && subject.Height > 0 {
		scale = math.Min(ov.Width/(subject.Width*baseW), ov.Height/(subject.Height*baseH))
	}
	scale = r.Clamp(scale)

	cx := clamp(subject.CenterX, 0, 1)
	cy := clamp(subject.CenterY, 0, 1)
	ovX, ovY := ov.Center()

	// Image point (cx, cy) lands at container center + dw*(cx-0.5) + offset
	return ViewTransform{
		OffsetX: ovX - container.Width/2 + baseW*scale*(0.5-cx),
		OffsetY: ovY - container.Height/2 + baseH*scale*(0.5-cy),
		Scale:   scale,
	}
}
