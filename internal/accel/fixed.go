package accel

// FractionBits is the number of fractional bits in a Q10.5 disparity sample.
const FractionBits = 5

// Scale converts Q10.5 samples to pixels.
const Scale = 1 << FractionBits

// InvalidSample marks a pixel without a disparity. It decodes to -1, below
// any searchable disparity, so a true zero disparity stays valid.
const InvalidSample int16 = -Scale

// DecodeFixed returns the disparity in pixels held by a Q10.5 sample.
func DecodeFixed(v int16) float32 {
	return float32(v) / Scale
}

// EncodeFixed rounds a disparity in pixels to the nearest Q10.5 sample,
// saturating at the int16 range.
func EncodeFixed(d float64) int16 {
	v := d * Scale
	if v >= 0 {
		v += 0.5
	} else {
		v -= 0.5
	}
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

// DecodeDisparity converts a FormatS16 image into a row-major field of
// disparities in pixels.
func DecodeDisparity(img *Image) []float32 {
	out := make([]float32, img.Width*img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out[y*img.Width+x] = DecodeFixed(img.S16At(x, y))
		}
	}
	return out
}
