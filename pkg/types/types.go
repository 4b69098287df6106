package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the box center in normalized coordinates
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// CenteredBox is the fallback used when no subject could be located
var CenteredBox = Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

// Subject is the primary subject a vision model located in an image
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detection is the reply of a vision model asked to locate the subject of a photo
type Detection struct {
	Subject  Subject `json:"subject"`
	Fallback bool    `json:"-"`
}
