package disparity

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// Colormap end points, near to far.
var (
	farColor  = colorful.Color{R: 0.05, G: 0.1, B: 0.6}
	nearColor = colorful.Color{R: 0.95, G: 0.2, B: 0.1}
)

// renderGray rescales disparities in [0, maxDisparity] to 8-bit gray.
func renderGray(field []float32, size accel.Size, maxDisparity int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: grayLevel(field[y*size.Width+x], maxDisparity)})
		}
	}
	return img
}

func grayLevel(d float32, maxDisparity int) uint8 {
	v := float64(d) / float64(maxDisparity) * 255
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}

// renderColormap blends from farColor to nearColor in HCL space. Invalid
// pixels are black.
func renderColormap(field []float32, size accel.Size, maxDisparity int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			d := field[y*size.Width+x]
			if d < 0 {
				img.SetRGBA(x, y, color.RGBA{A: 255})
				continue
			}
			t := min(float64(d)/float64(maxDisparity), 1)
			r, g, b := farColor.BlendHcl(nearColor, t).Clamped().RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// renderRaw stores the Q10.5 samples in a 16-bit gray image. Invalid
// pixels are clamped to 0.
func renderRaw(field []float32, size accel.Size) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			v := accel.EncodeFixed(float64(field[y*size.Width+x]))
			img.SetGray16(x, y, color.Gray16{Y: uint16(max(v, 0))})
		}
	}
	return img
}
