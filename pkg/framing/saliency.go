package framing

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/homebuddy/cropkit/pkg/types"
)

// SaliencyLocator finds the subject locally from edge strength and luminance contrast
type SaliencyLocator struct {
	WorkSize       int // long side of the downsampled working copy
	EdgeWeight     float64
	ContrastWeight float64
}

// NewSaliencyLocator creates a SaliencyLocator with default weights
func NewSaliencyLocator() *SaliencyLocator {
	return &SaliencyLocator{
		WorkSize:       128,
		EdgeWeight:     0.5,
		ContrastWeight: 1.0,
	}
}

// uniformSpread converts a standard deviation into the half-width of a uniform block
var uniformSpread = math.Sqrt(3)

// Locate implements Locator. Pixels more salient than average form the subject; the
// returned box spans their weighted centroid plus or minus sqrt(3) standard deviations.
func (s *SaliencyLocator) Locate(ctx context.Context, img image.Image) (types.Box, error) {
	if err := ctx.Err(); err != nil {
		return types.Box{}, err
	}

	work := s.WorkSize
	if work <= 0 {
		work = 128
	}
	gray := imaging.Grayscale(imaging.Fit(img, work, work, imaging.Lanczos))
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w < 3 || h < 3 {
		return types.CenteredBox, nil
	}

	sal := s.saliencyMap(gray)

	var mean float64
	for _, v := range sal {
		mean += v
	}
	mean /= float64(len(sal))

	var total, sx, sy float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := sal[y*w+x] - mean
			if v <= 0 {
				continue
			}
			total += v
			sx += v * (float64(x) + 0.5)
			sy += v * (float64(y) + 0.5)
		}
	}
	if total < 1e-9 {
		return types.CenteredBox, nil
	}
	cx, cy := sx/total, sy/total

	var vx, vy float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := sal[y*w+x] - mean
			if v <= 0 {
				continue
			}
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			vx += v * dx * dx
			vy += v * dy * dy
		}
	}
	halfW := uniformSpread * math.Sqrt(vx/total)
	halfH := uniformSpread * math.Sqrt(vy/total)

	fw, fh := float64(w), float64(h)
	x0 := clamp((cx-halfW)/fw, 0, 1)
	y0 := clamp((cy-halfH)/fh, 0, 1)
	x1 := clamp((cx+halfW)/fw, 0, 1)
	y1 := clamp((cy+halfH)/fh, 0, 1)

	return types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, nil
}

// saliencyMap scores each pixel by its 8-neighbour luminance gradient and its squared
// distance from the mean luminance. Border pixels only get the contrast term.
func (s *SaliencyLocator) saliencyMap(gray *image.NRGBA) []float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	lum := make([]float64, w*h)
	var meanLum float64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			l := float64(row[x*4]) / 255
			lum[y*w+x] = l
			meanLum += l
		}
	}
	meanLum /= float64(w * h)

	sal := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := lum[y*w+x]
			c := l - meanLum
			score := s.ContrastWeight * c * c

			if x > 0 && y > 0 && x < w-1 && y < h-1 {
				var edge float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						edge += math.Abs(l - lum[(y+dy)*w+x+dx])
					}
				}
				score += s.EdgeWeight * edge / 8
			}
			sal[y*w+x] = score
		}
	}
	return sal
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
