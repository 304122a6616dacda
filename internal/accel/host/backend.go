// Package host is the pure-Go stereo-disparity backend. Streams run their
// work on a dedicated goroutine and the matching itself is spread over the
// CPU cores.
package host

import (
	"fmt"
	"log"
	"runtime"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// Name is the device name this backend registers under.
const Name = "cpu"

const streamDepth = 16

// Backend runs semi-global matching on the CPU.
type Backend struct {
	workers int
}

// New returns a CPU backend that uses up to workers goroutines per
// computation. workers <= 0 uses every core.
func New(workers int) *Backend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Backend{workers: workers}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) NewStream() (accel.Stream, error) {
	return newStream(streamDepth), nil
}

// Wrap exposes img to the backend without copying its pixels.
func (b *Backend) Wrap(img *accel.Image) (accel.Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &buffer{img: img}, nil
}

func (b *Backend) NewBuffer(size accel.Size, format accel.Format) (accel.Buffer, error) {
	if format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("unsupported pixel format %s", format)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %s", size)
	}
	return &buffer{img: accel.NewImage(size.Width, size.Height, format)}, nil
}

func (b *Backend) NewStereoEstimator(size accel.Size, format accel.Format, params accel.CreateParams) (accel.Estimator, error) {
	if format != accel.FormatU8 {
		return nil, &accel.FormatError{Want: accel.FormatU8, Got: format}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	out := params.OutputSize(size)
	if out.Width <= 0 || out.Height <= 0 {
		return nil, fmt.Errorf("input %s too small for downscale factor %d", size, params.DownscaleFactor)
	}
	log.Printf("host: creating stereo estimator for %s input, %s output, %d disparities, %d workers",
		size, out, params.MaxDisparity, b.workers)
	return newEstimator(size, format, params, b.workers), nil
}

func errForeign(kind string) error {
	return fmt.Errorf("%s was not created by the %s backend", kind, Name)
}
