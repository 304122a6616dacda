package sgm

import "github.com/sokinpui/stereo-disparity/internal/accel"

// Downscale box-filters a FormatU8 image by an integer factor. A factor of 1
// returns img unchanged.
func Downscale(img *accel.Image, factor int) *accel.Image {
	if factor <= 1 {
		return img
	}
	out := accel.NewImage(img.Width/factor, img.Height/factor, accel.FormatU8)
	area := factor * factor
	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		for x := 0; x < out.Width; x++ {
			sum := 0
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					sum += int(img.U8At(x*factor+dx, y*factor+dy))
				}
			}
			row[x] = uint8((sum + area/2) / area)
		}
	}
	return out
}
