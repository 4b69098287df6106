// Package geometry maps a user-positioned crop guide back onto source image pixels.
//
// All functions are pure: they take snapshots of the container frame, the natural
// image size, the pan/zoom transform and the overlay, and return new values.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrUnmeasuredContainer is returned when the container has not been laid out yet
	ErrUnmeasuredContainer = errors.New("geometry: container not measured")
	// ErrUnknownNaturalSize is returned when the image probe has not resolved
	ErrUnknownNaturalSize = errors.New("geometry: natural image size unknown")
	// ErrInvalidOverlay is returned for overlays with a non-positive size or aspect ratio
	ErrInvalidOverlay = errors.New("geometry: invalid overlay")
)

// ContainerFrame is the on-screen rectangle hosting the image preview
type ContainerFrame struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Measured reports whether the frame has a usable layout
func (c ContainerFrame) Measured() bool {
	return c.Width > 0 && c.Height > 0
}

// NaturalSize holds the intrinsic pixel dimensions of an image
type NaturalSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Known reports whether the size has been probed
func (n NaturalSize) Known() bool {
	return n.Width > 0 && n.Height > 0
}

// Rect is a rectangle in container space
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Center returns the rectangle center
func (r Rect) Center() (float64, float64) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// CropRect is a crop region in source image pixel space
type CropRect struct {
	OriginX int `json:"originX"`
	OriginY int `json:"originY"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// Rectangle converts the crop into an image.Rectangle
func (c CropRect) Rectangle() image.Rectangle {
	return image.Rect(c.OriginX, c.OriginY, c.OriginX+c.Width, c.OriginY+c.Height)
}

// IsEmpty reports whether the crop covers no pixels
func (c CropRect) IsEmpty() bool {
	return c.Width <= 0 || c.Height <= 0
}

func (c CropRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", c.Width, c.Height, c.OriginX, c.OriginY)
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

// floorSnap floors v, treating values within 1e-9 below an integer as that integer
func floorSnap(v float64) float64 {
	return math.Floor(v + 1e-9)
}
