// Package sgm implements semi-global matching on rectified 8-bit stereo
// pairs. A Matcher owns the cost volumes for one resolution and produces
// Q10.5 disparity maps.
package sgm

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// InvalidDisparity is written where no disparity could be chosen.
const InvalidDisparity = accel.InvalidSample

// Options control a single Match call.
type Options struct {
	// MinDisparity and MaxDisparity bound the search to [MinDisparity, MaxDisparity).
	MinDisparity int
	MaxDisparity int
	P1           int
	P2           int
	// Uniqueness rejects pixels whose best cost is not below (1-Uniqueness)
	// times the best cost of a non-adjacent disparity. Negative disables it.
	Uniqueness float64
	Diagonals  bool
}

// OptionsFrom combines estimator and submission parameters.
func OptionsFrom(c accel.CreateParams, p accel.Params) Options {
	u := p.Uniqueness
	if !p.UniquenessEnabled() {
		u = -1
	}
	return Options{
		MinDisparity: p.MinDisparity,
		MaxDisparity: p.EffectiveMaxDisparity(c),
		P1:           p.P1,
		P2:           p.P2,
		Uniqueness:   u,
		Diagonals:    c.IncludeDiagonals,
	}
}

// Matcher holds the cost and aggregation volumes for one resolution and
// disparity range. It is not safe for concurrent Match calls.
type Matcher struct {
	width       int
	height      int
	disparities int
	workers     int
	maxCost     uint8
	cost        []uint8
	sum         []uint16
}

// NewMatcher allocates volumes for a width x height map searching
// disparities [0, disparities).
func NewMatcher(size accel.Size, disparities, workers int) *Matcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	n := size.Width * size.Height * disparities
	return &Matcher{
		width:       size.Width,
		height:      size.Height,
		disparities: disparities,
		workers:     workers,
		maxCost:     censusBits,
		cost:        make([]uint8, n),
		sum:         make([]uint16, n),
	}
}

// Size returns the resolution the matcher was built for.
func (m *Matcher) Size() accel.Size {
	return accel.Size{Width: m.width, Height: m.height}
}

// Match computes census costs for left and right, aggregates them and
// writes the Q10.5 result to out.
func (m *Matcher) Match(left, right, out *accel.Image, opts Options) error {
	if err := m.ComputeCensusCost(left, right); err != nil {
		return err
	}
	return m.AggregateAndSelect(out, opts)
}

// ComputeCensusCost fills the cost volume with Hamming distances between the
// census codes of left(x, y) and right(x-d, y).
func (m *Matcher) ComputeCensusCost(left, right *accel.Image) error {
	for _, img := range []*accel.Image{left, right} {
		if img.Format != accel.FormatU8 {
			return &accel.FormatError{Want: accel.FormatU8, Got: img.Format}
		}
		if img.Size() != m.Size() {
			return &accel.SizeMismatchError{Want: m.Size(), Left: left.Size(), Right: right.Size()}
		}
	}

	var cl, cr []uint32
	var g errgroup.Group
	g.Go(func() error { cl = censusTransform(left); return nil })
	g.Go(func() error { cr = censusTransform(right); return nil })
	_ = g.Wait()

	m.maxCost = censusBits
	return m.forRows(func(y int) {
		for x := 0; x < m.width; x++ {
			base := (y*m.width + x) * m.disparities
			code := cl[y*m.width+x]
			for d := 0; d < m.disparities; d++ {
				if x-d < 0 {
					m.cost[base+d] = m.maxCost
					continue
				}
				m.cost[base+d] = hamming(code, cr[y*m.width+x-d])
			}
		}
	})
}

// SetCostPlane installs an externally computed cost for disparity d.
// plane is row-major width x height; values above maxCost are clamped.
func (m *Matcher) SetCostPlane(d int, plane []uint8, maxCost uint8) error {
	if d < 0 || d >= m.disparities {
		return fmt.Errorf("disparity %d outside [0, %d)", d, m.disparities)
	}
	if len(plane) != m.width*m.height {
		return fmt.Errorf("cost plane holds %d samples, want %d", len(plane), m.width*m.height)
	}
	m.maxCost = maxCost
	for i, c := range plane {
		x := i % m.width
		if x-d < 0 || c > maxCost {
			c = maxCost
		}
		m.cost[i*m.disparities+d] = c
	}
	return nil
}

// AggregateAndSelect runs path aggregation over the current cost volume and
// writes the winning disparities to out.
func (m *Matcher) AggregateAndSelect(out *accel.Image, opts Options) error {
	if out.Format != accel.FormatS16 {
		return &accel.FormatError{Want: accel.FormatS16, Got: out.Format}
	}
	if out.Size() != m.Size() {
		return &accel.SizeMismatchError{Want: m.Size(), Left: out.Size(), Right: out.Size()}
	}
	if opts.MaxDisparity <= 0 || opts.MaxDisparity > m.disparities {
		return fmt.Errorf("max disparity %d outside (0, %d]", opts.MaxDisparity, m.disparities)
	}
	if opts.MinDisparity < 0 || opts.MinDisparity >= opts.MaxDisparity {
		return fmt.Errorf("min disparity %d outside [0, %d)", opts.MinDisparity, opts.MaxDisparity)
	}
	dirs := paths(opts.Diagonals)
	// Each path contributes at most maxCost+P2 per pixel and disparity.
	if len(dirs)*(int(m.maxCost)+opts.P2+opts.P1) > math.MaxUint16 {
		return fmt.Errorf("penalty p2=%d overflows the aggregation volume", opts.P2)
	}

	clear(m.sum)
	for _, dir := range dirs {
		if err := m.aggregate(dir, opts); err != nil {
			return err
		}
	}
	return m.forRows(func(y int) { m.selectRow(out, y, opts) })
}

// aggregate accumulates the path costs along dir into m.sum. Scanlines of one
// direction touch disjoint pixels and run in parallel.
func (m *Matcher) aggregate(dir direction, opts Options) error {
	lines := splitIntoScanlines(m.width, m.height, dir)
	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, group := range chunk(lines, m.workers) {
		group := group
		g.Go(func() error {
			prev := make([]uint16, m.disparities)
			cur := make([]uint16, m.disparities)
			for _, line := range group {
				m.aggregateLine(line, prev, cur, opts)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Matcher) aggregateLine(line scanline, prev, cur []uint16, opts Options) {
	D := m.disparities
	p1, p2 := uint16(opts.P1), uint16(opts.P2)

	x, y := line.Start.X, line.Start.Y
	base := (y*m.width + x) * D
	minPrev := uint16(math.MaxUint16)
	for d := 0; d < D; d++ {
		prev[d] = uint16(m.cost[base+d])
		m.sum[base+d] += prev[d]
		minPrev = min(minPrev, prev[d])
	}

	for {
		x += line.Dir.X
		y += line.Dir.Y
		if x < 0 || x >= m.width || y < 0 || y >= m.height {
			return
		}
		base = (y*m.width + x) * D
		jump := minPrev + p2
		minCur := uint16(math.MaxUint16)
		for d := 0; d < D; d++ {
			best := min(prev[d], jump)
			if d > 0 {
				best = min(best, prev[d-1]+p1)
			}
			if d < D-1 {
				best = min(best, prev[d+1]+p1)
			}
			v := uint16(m.cost[base+d]) + best - minPrev
			cur[d] = v
			m.sum[base+d] += v
			minCur = min(minCur, v)
		}
		prev, cur = cur, prev
		minPrev = minCur
	}
}

func (m *Matcher) selectRow(out *accel.Image, y int, opts Options) {
	D := m.disparities
	for x := 0; x < m.width; x++ {
		hi := min(opts.MaxDisparity-1, x)
		if hi < opts.MinDisparity {
			out.SetS16(x, y, InvalidDisparity)
			continue
		}
		s := m.sum[(y*m.width+x)*D : (y*m.width+x+1)*D]

		bestD := opts.MinDisparity
		for d := opts.MinDisparity + 1; d <= hi; d++ {
			if s[d] < s[bestD] {
				bestD = d
			}
		}

		if opts.Uniqueness >= 0 {
			second := uint16(math.MaxUint16)
			for d := opts.MinDisparity; d <= hi; d++ {
				if d < bestD-1 || d > bestD+1 {
					second = min(second, s[d])
				}
			}
			if second != math.MaxUint16 && float64(s[bestD]) > (1-opts.Uniqueness)*float64(second) {
				out.SetS16(x, y, InvalidDisparity)
				continue
			}
		}

		disp := float64(bestD)
		if bestD > opts.MinDisparity && bestD < hi {
			c0, c1, c2 := float64(s[bestD-1]), float64(s[bestD]), float64(s[bestD+1])
			if denom := c0 - 2*c1 + c2; denom > 0 {
				disp += (c0 - c2) / (2 * denom)
			}
		}
		out.SetS16(x, y, accel.EncodeFixed(disp))
	}
}

// forRows runs fn for every row, spread over the matcher's workers.
func (m *Matcher) forRows(fn func(y int)) error {
	var g errgroup.Group
	g.SetLimit(m.workers)
	rowsPer := (m.height + m.workers - 1) / m.workers
	for start := 0; start < m.height; start += rowsPer {
		start, end := start, min(start+rowsPer, m.height)
		g.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}
	return g.Wait()
}
