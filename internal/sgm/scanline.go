package sgm

import (
	"image"
)

// direction is the step between consecutive pixels of an aggregation path.
type direction = image.Point

var (
	horizontalPaths = []direction{{X: 1}, {X: -1}}
	verticalPaths   = []direction{{Y: 1}, {Y: -1}}
	diagonalPaths   = []direction{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}}
)

// paths returns the aggregation directions to run.
func paths(diagonals bool) []direction {
	dirs := append([]direction{}, horizontalPaths...)
	dirs = append(dirs, verticalPaths...)
	if diagonals {
		dirs = append(dirs, diagonalPaths...)
	}
	return dirs
}

// scanline is one independent aggregation path through the image: it begins
// at Start and advances by Dir until it leaves the bounds. Within a single
// direction every pixel belongs to exactly one scanline.
type scanline struct {
	Start image.Point
	Dir   direction
}

// splitIntoScanlines divides a w x h image into the scanlines that follow dir.
func splitIntoScanlines(w, h int, dir direction) []scanline {
	bounds := image.Rect(0, 0, w, h)
	lines := []scanline{}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := image.Pt(x, y)
			if p.Sub(dir).In(bounds) {
				continue
			}
			lines = append(lines, scanline{Start: p, Dir: dir})
		}
	}
	return lines
}

// chunk splits lines into at most n contiguous groups.
func chunk(lines []scanline, n int) [][]scanline {
	if n <= 0 {
		n = 1
	}
	size := (len(lines) + n - 1) / n
	if size == 0 {
		return nil
	}
	groups := make([][]scanline, 0, n)
	for start := 0; start < len(lines); start += size {
		groups = append(groups, lines[start:min(start+size, len(lines))])
	}
	return groups
}
