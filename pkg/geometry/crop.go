package geometry

import "math"

// FitScale returns the contain-fit factor of natural inside container
func FitScale(container ContainerFrame, natural NaturalSize) float64 {
	return math.Min(
		container.Width/float64(natural.Width),
		container.Height/float64(natural.Height),
	)
}

// DisplayedImageRect returns where the image is drawn inside the container.
// With the identity transform the image is centered and fully visible.
func DisplayedImageRect(container ContainerFrame, natural NaturalSize, transform ViewTransform) Rect {
	fit := FitScale(container, natural)
	w := float64(natural.Width) * fit * transform.scale()
	h := float64(natural.Height) * fit * transform.scale()

	return Rect{
		Left:   (container.Width-w)/2 + transform.OffsetX,
		Top:    (container.Height-h)/2 + transform.OffsetY,
		Width:  w,
		Height: h,
	}
}

// CheckInputs reports which crop input is still missing, if any
func CheckInputs(container ContainerFrame, natural NaturalSize) error {
	if !container.Measured() {
		return ErrUnmeasuredContainer
	}
	if !natural.Known() {
		return ErrUnknownNaturalSize
	}
	return nil
}

// ComputeCropRect maps the overlay into source pixels for the current view.
//
// The result always satisfies OriginX+Width <= natural.Width and
// OriginY+Height <= natural.Height with Width, Height >= 1.
func ComputeCropRect(container ContainerFrame, natural NaturalSize, transform ViewTransform, overlay OverlaySpec) (CropRect, error) {
	if err := CheckInputs(container, natural); err != nil {
		return CropRect{}, err
	}
	if err := overlay.Validate(); err != nil {
		return CropRect{}, err
	}

	displayed := DisplayedImageRect(container, natural, transform)
	ov := OverlayRect(container, overlay)

	nw, nh := float64(natural.Width), float64(natural.Height)

	x := (ov.Left - displayed.Left) * nw / displayed.Width
	y := (ov.Top - displayed.Top) * nh / displayed.Height
	w := ov.Width * nw / displayed.Width
	h := ov.Height * nh / displayed.Height

	originX := floorSnap(clamp(x, 0, nw-1))
	originY := floorSnap(clamp(y, 0, nh-1))
	width := floorSnap(clamp(w, 1, nw-originX))
	height := floorSnap(clamp(h, 1, nh-originY))

	return CropRect{
		OriginX: int(originX),
		OriginY: int(originY),
		Width:   int(width),
		Height:  int(height),
	}, nil
}
