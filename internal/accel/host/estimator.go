package host

import (
	"sync"

	"github.com/sokinpui/stereo-disparity/internal/accel"
	"github.com/sokinpui/stereo-disparity/internal/sgm"
)

// estimator is the host payload. The matcher volumes are allocated lazily on
// the first run and reused afterwards.
type estimator struct {
	size    accel.Size
	format  accel.Format
	params  accel.CreateParams
	workers int

	mu      sync.Mutex
	matcher *sgm.Matcher
	closed  bool
}

func newEstimator(size accel.Size, format accel.Format, params accel.CreateParams, workers int) *estimator {
	return &estimator{size: size, format: format, params: params, workers: workers}
}

func (e *estimator) InputSize() accel.Size      { return e.size }
func (e *estimator) InputFormat() accel.Format  { return e.format }
func (e *estimator) Params() accel.CreateParams { return e.params }

func (e *estimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return accel.ErrClosed
	}
	e.closed = true
	e.matcher = nil
	return nil
}

// run executes one disparity computation on the calling goroutine.
func (e *estimator) run(left, right, disparity *buffer, params accel.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return accel.ErrClosed
	}

	l, err := left.image()
	if err != nil {
		return err
	}
	r, err := right.image()
	if err != nil {
		return err
	}
	out, err := disparity.image()
	if err != nil {
		return err
	}

	l = sgm.Downscale(l, e.params.DownscaleFactor)
	r = sgm.Downscale(r, e.params.DownscaleFactor)

	if e.matcher == nil {
		e.matcher = sgm.NewMatcher(e.params.OutputSize(e.size), e.params.MaxDisparity, e.workers)
	}
	return e.matcher.Match(l, r, out, sgm.OptionsFrom(e.params, params))
}
