package cuda

import "fmt"

// fillCostPlane copies a downloaded |left - right| block of h rows by w-d
// columns into columns [d, w) of the w x h plane. Columns left of d are not
// touched; the matcher clamps them.
func fillCostPlane(plane []uint8, w, h, d int, diff []byte) error {
	cols := w - d
	if d < 0 || cols <= 0 {
		return fmt.Errorf("disparity %d outside [0, %d)", d, w)
	}
	if len(plane) != w*h {
		return fmt.Errorf("cost plane holds %d samples, want %d", len(plane), w*h)
	}
	if len(diff) < h*cols {
		return fmt.Errorf("device returned %d bytes at disparity %d, want %d", len(diff), d, h*cols)
	}
	for y := 0; y < h; y++ {
		copy(plane[y*w+d:(y+1)*w], diff[y*cols:(y+1)*cols])
	}
	return nil
}
