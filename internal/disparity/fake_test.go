package disparity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// Failure injection points of fakeBackend.
const (
	failNone      = ""
	failStream    = "stream"
	failWrap      = "wrap"
	failBuffer    = "buffer"
	failCreate    = "create"
	failSubmit    = "submit"
	failSync      = "sync"
	failLock      = "lock"
	failLockInput = "lock-input"
)

var errInjected = errors.New("injected failure")

// fakeBackend is a deterministic accelerator that counts every Close call.
// On Sync it writes left(x, y) / 4 pixels of disparity into the output.
type fakeBackend struct {
	failAt string

	mu        sync.Mutex
	resources []*fakeResource
}

type fakeResource struct {
	kind   string
	closes int
}

func (b *fakeBackend) track(kind string) *fakeResource {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &fakeResource{kind: kind}
	b.resources = append(b.resources, r)
	return r
}

func (r *fakeResource) Close() error {
	r.closes++
	if r.closes > 1 {
		return accel.ErrClosed
	}
	return nil
}

// checkReleased returns an error unless every resource was closed exactly once.
func (b *fakeBackend) checkReleased() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.resources {
		if r.closes != 1 {
			return fmt.Errorf("%s closed %d times", r.kind, r.closes)
		}
	}
	return nil
}

func (b *fakeBackend) created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.resources)
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) NewStream() (accel.Stream, error) {
	if b.failAt == failStream {
		return nil, errInjected
	}
	return &fakeStream{fakeResource: b.track("stream"), backend: b}, nil
}

func (b *fakeBackend) Wrap(img *accel.Image) (accel.Buffer, error) {
	if b.failAt == failWrap {
		return nil, errInjected
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &fakeBuffer{fakeResource: b.track("wrapper"), img: img, failLock: b.failAt == failLockInput}, nil
}

func (b *fakeBackend) NewBuffer(size accel.Size, format accel.Format) (accel.Buffer, error) {
	if b.failAt == failBuffer {
		return nil, errInjected
	}
	return &fakeBuffer{
		fakeResource: b.track("buffer"),
		img:          accel.NewImage(size.Width, size.Height, format),
		failLock:     b.failAt == failLock,
	}, nil
}

func (b *fakeBackend) NewStereoEstimator(size accel.Size, format accel.Format, params accel.CreateParams) (accel.Estimator, error) {
	if b.failAt == failCreate {
		return nil, errInjected
	}
	return &fakeEstimator{fakeResource: b.track("estimator"), size: size, format: format, params: params}, nil
}

type fakeBuffer struct {
	*fakeResource
	img      *accel.Image
	failLock bool
}

func (f *fakeBuffer) Size() accel.Size     { return f.img.Size() }
func (f *fakeBuffer) Format() accel.Format { return f.img.Format }
func (f *fakeBuffer) Unlock()              {}

func (f *fakeBuffer) Lock() (*accel.Image, error) {
	if f.failLock {
		return nil, errInjected
	}
	return f.img, nil
}

type fakeEstimator struct {
	*fakeResource
	size   accel.Size
	format accel.Format
	params accel.CreateParams
}

func (e *fakeEstimator) InputSize() accel.Size      { return e.size }
func (e *fakeEstimator) InputFormat() accel.Format  { return e.format }
func (e *fakeEstimator) Params() accel.CreateParams { return e.params }

type fakeStream struct {
	*fakeResource
	backend *fakeBackend
	pending []func()
}

func (s *fakeStream) SubmitStereoDisparity(est accel.Estimator, left, right, disparity accel.Buffer, params accel.Params) error {
	if s.backend.failAt == failSubmit {
		return errInjected
	}
	if err := accel.CheckSubmission(est, left, right, disparity, params); err != nil {
		return err
	}
	l := left.(*fakeBuffer).img
	out := disparity.(*fakeBuffer).img
	s.pending = append(s.pending, func() {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.SetS16(x, y, int16(l.U8At(x, y))*accel.Scale/4)
			}
		}
	})
	return nil
}

func (s *fakeStream) Sync() error {
	if s.backend.failAt == failSync {
		return errInjected
	}
	for _, fn := range s.pending {
		fn()
	}
	s.pending = nil
	return nil
}
