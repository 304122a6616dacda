// Package accel defines the contract between the disparity driver and a
// stereo-disparity accelerator. A Backend hands out execution streams, image
// buffers and estimator payloads; each of them must be closed by the caller.
package accel

// Buffer is an image known to a backend, either wrapping a host Image or
// allocated by the backend itself.
type Buffer interface {
	Size() Size
	Format() Format
	// Lock maps the buffer for host reads. The returned view is valid until
	// Unlock.
	Lock() (*Image, error)
	Unlock()
	Close() error
}

// Estimator is a stereo-disparity payload bound to one input resolution and
// format.
type Estimator interface {
	InputSize() Size
	InputFormat() Format
	Params() CreateParams
	Close() error
}

// Stream is an execution context. Submissions return as soon as the work is
// queued; Sync blocks until all queued work has finished.
type Stream interface {
	SubmitStereoDisparity(est Estimator, left, right, disparity Buffer, params Params) error
	Sync() error
	Close() error
}

// Backend is a stereo-disparity accelerator.
type Backend interface {
	Name() string
	NewStream() (Stream, error)
	// Wrap exposes img to the backend without copying it.
	Wrap(img *Image) (Buffer, error)
	NewBuffer(size Size, format Format) (Buffer, error)
	NewStereoEstimator(size Size, format Format, params CreateParams) (Estimator, error)
}

// CheckSubmission validates the arguments of a stereo submission against the
// estimator they target. Backends call it before queueing work.
func CheckSubmission(est Estimator, left, right, disparity Buffer, params Params) error {
	if left.Size() != est.InputSize() || right.Size() != est.InputSize() {
		return &SizeMismatchError{Want: est.InputSize(), Left: left.Size(), Right: right.Size()}
	}
	if left.Format() != est.InputFormat() || right.Format() != est.InputFormat() {
		return &FormatError{Want: est.InputFormat(), Got: left.Format()}
	}
	if disparity.Format() != FormatS16 {
		return &FormatError{Want: FormatS16, Got: disparity.Format()}
	}
	if want := est.Params().OutputSize(est.InputSize()); disparity.Size() != want {
		return &SizeMismatchError{Want: want, Left: disparity.Size(), Right: disparity.Size()}
	}
	return params.Validate(est.Params())
}
