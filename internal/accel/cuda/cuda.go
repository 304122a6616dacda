//go:build cuda

package cuda

import (
	"errors"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
	gocuda "gocv.io/x/gocv/cuda"

	"github.com/sokinpui/stereo-disparity/internal/accel"
	"github.com/sokinpui/stereo-disparity/internal/accel/queue"
	"github.com/sokinpui/stereo-disparity/internal/sgm"
)

// ErrUnavailable is returned when no CUDA device can be used.
var ErrUnavailable = errors.New("no CUDA-enabled device found")

const streamDepth = 16

// Backend uses an NVIDIA GPU through OpenCV's CUDA modules.
type Backend struct {
	workers int
}

// New checks for CUDA devices and returns the backend.
func New(workers int) (accel.Backend, error) {
	if gocuda.GetCudaEnabledDeviceCount() == 0 {
		return nil, fmt.Errorf("%w. Please ensure OpenCV is compiled with CUDA support and a compatible GPU is available", ErrUnavailable)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Backend{workers: workers}, nil
}

func (b *Backend) Name() string { return Name }

func (b *Backend) NewStream() (accel.Stream, error) {
	return &stream{dev: gocuda.NewStream(), q: queue.New(streamDepth)}, nil
}

// Wrap binds img to an OpenCV header over the same pixels.
func (b *Backend) Wrap(img *accel.Image) (accel.Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return newBuffer(img)
}

func (b *Backend) NewBuffer(size accel.Size, format accel.Format) (accel.Buffer, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %s", size)
	}
	return newBuffer(accel.NewImage(size.Width, size.Height, format))
}

func (b *Backend) NewStereoEstimator(size accel.Size, format accel.Format, params accel.CreateParams) (accel.Estimator, error) {
	if format != accel.FormatU8 {
		return nil, &accel.FormatError{Want: accel.FormatU8, Got: format}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.DownscaleFactor != 1 {
		return nil, fmt.Errorf("downscale factor %d is not supported on %s", params.DownscaleFactor, Name)
	}
	log.Printf("cuda: creating stereo estimator for %s input, %d disparities", size, params.MaxDisparity)
	return &estimator{
		size:    size,
		params:  params,
		matcher: sgm.NewMatcher(size, params.MaxDisparity, b.workers),
	}, nil
}

// buffer pairs a host image with the OpenCV Mat header that views it.
type buffer struct {
	mu     sync.Mutex
	img    *accel.Image
	mat    gocv.Mat
	closed bool
}

func newBuffer(img *accel.Image) (*buffer, error) {
	mt := gocv.MatTypeCV8UC1
	switch img.Format {
	case accel.FormatU8:
	case accel.FormatS16:
		mt = gocv.MatTypeCV16SC1
	default:
		return nil, fmt.Errorf("unsupported pixel format %s", img.Format)
	}
	// OpenCV needs every row padded to the full pitch, including the last.
	if !img.FullPitch() {
		return nil, fmt.Errorf("buffer holds %d bytes, %s wrap needs %d", len(img.Data), Name, img.Height*img.Pitch)
	}
	mat, err := gocv.NewMatFromBytes(img.Height, img.Pitch/img.Format.BytesPerPixel(), mt, img.Data[:img.Height*img.Pitch])
	if err != nil {
		return nil, fmt.Errorf("could not create OpenCV header: %w", err)
	}
	return &buffer{img: img, mat: mat}, nil
}

func (b *buffer) Size() accel.Size     { return b.img.Size() }
func (b *buffer) Format() accel.Format { return b.img.Format }

func (b *buffer) Lock() (*accel.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, accel.ErrClosed
	}
	return b.img, nil
}

func (b *buffer) Unlock() {}

func (b *buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return accel.ErrClosed
	}
	b.closed = true
	return b.mat.Close()
}

// region returns the Mat view of columns [x0, x1) without pitch padding.
func (b *buffer) region(x0, x1 int) gocv.Mat {
	return b.mat.Region(image.Rect(x0, 0, x1, b.img.Height))
}

type estimator struct {
	mu      sync.Mutex
	size    accel.Size
	params  accel.CreateParams
	matcher *sgm.Matcher
	closed  bool
}

func (e *estimator) InputSize() accel.Size      { return e.size }
func (e *estimator) InputFormat() accel.Format  { return accel.FormatU8 }
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

type stream struct {
	dev gocuda.Stream
	q   *queue.Queue
}

// SubmitStereoDisparity queues the computation. Per-disparity absolute
// differences are produced on the device stream; the host worker waits for
// the device, then aggregates.
func (s *stream) SubmitStereoDisparity(est accel.Estimator, left, right, disparity accel.Buffer, params accel.Params) error {
	e, ok := est.(*estimator)
	if !ok {
		return fmt.Errorf("estimator was not created by the %s backend", Name)
	}
	l, lok := left.(*buffer)
	r, rok := right.(*buffer)
	out, ook := disparity.(*buffer)
	if !lok || !rok || !ook {
		return fmt.Errorf("buffer was not created by the %s backend", Name)
	}
	if err := accel.CheckSubmission(est, left, right, disparity, params); err != nil {
		return err
	}
	return s.q.Enqueue("stereo disparity", func() error {
		return s.run(e, l, r, out, params)
	})
}

func (s *stream) run(e *estimator, l, r, out *buffer, params accel.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return accel.ErrClosed
	}
	w, h := e.size.Width, e.size.Height

	gl := gocuda.NewGpuMat()
	defer gl.Close()
	gr := gocuda.NewGpuMat()
	defer gr.Close()
	diff := gocuda.NewGpuMat()
	defer diff.Close()

	plane := make([]uint8, w*h)
	for d := 0; d < e.params.MaxDisparity; d++ {
		if d >= w {
			// No column has a match this far out; every cost is clamped.
			if err := e.matcher.SetCostPlane(d, plane, truncatedCost); err != nil {
				return err
			}
			continue
		}
		if err := s.costPlane(l, r, d, plane, &gl, &gr, &diff); err != nil {
			return err
		}
		if err := e.matcher.SetCostPlane(d, plane, truncatedCost); err != nil {
			return err
		}
	}

	img, err := out.Lock()
	if err != nil {
		return err
	}
	defer out.Unlock()
	return e.matcher.AggregateAndSelect(img, sgm.OptionsFrom(e.params, params))
}

// costPlane computes |left(x) - right(x-d)| on the device and copies it into
// plane.
func (s *stream) costPlane(l, r *buffer, d int, plane []uint8, gl, gr, diff *gocuda.GpuMat) error {
	w := l.img.Width
	lm := l.region(d, w)
	defer lm.Close()
	rm := r.region(0, w-d)
	defer rm.Close()

	gl.UploadWithStream(lm, s.dev)
	gr.UploadWithStream(rm, s.dev)
	if err := gocuda.AbsDiffWithStream(*gl, *gr, diff, s.dev); err != nil {
		return fmt.Errorf("abs diff at disparity %d: %w", d, err)
	}

	host := gocv.NewMat()
	defer host.Close()
	diff.DownloadWithStream(&host, s.dev)
	s.dev.WaitForCompletion()
	if host.Empty() {
		return fmt.Errorf("download at disparity %d returned no data", d)
	}
	return fillCostPlane(plane, w, l.img.Height, d, host.ToBytes())
}

func (s *stream) Sync() error {
	return s.q.Wait()
}

func (s *stream) Close() error {
	err := s.q.Close()
	if cerr := s.dev.Close(); err == nil {
		err = cerr
	}
	return err
}
