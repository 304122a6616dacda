package sgm

import (
	"math/bits"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

const (
	censusRadius = 2
	// censusBits is the number of comparisons in a 5x5 window.
	censusBits = (2*censusRadius+1)*(2*censusRadius+1) - 1
)

// censusTransform encodes every pixel of a FormatU8 image as a bit string of
// neighbour-darker-than-centre comparisons over a 5x5 window. Coordinates
// outside the image are clamped to the border.
func censusTransform(img *accel.Image) []uint32 {
	w, h := img.Width, img.Height
	out := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			centre := img.U8At(x, y)
			var code uint32
			for dy := -censusRadius; dy <= censusRadius; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -censusRadius; dx <= censusRadius; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					xx := clamp(x+dx, 0, w-1)
					code <<= 1
					if img.U8At(xx, yy) < centre {
						code |= 1
					}
				}
			}
			out[y*w+x] = code
		}
	}
	return out
}

func hamming(a, b uint32) uint8 {
	return uint8(bits.OnesCount32(a ^ b))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
