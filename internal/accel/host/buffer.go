package host

import (
	"sync"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// buffer is a host-memory image. Wrapped buffers alias the caller's pixels.
type buffer struct {
	mu     sync.Mutex
	img    *accel.Image
	locked bool
	closed bool
}

func (b *buffer) Size() accel.Size     { return b.img.Size() }
func (b *buffer) Format() accel.Format { return b.img.Format }

// Lock returns the pitch-linear host view of the buffer.
func (b *buffer) Lock() (*accel.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, accel.ErrClosed
	}
	b.locked = true
	return b.img, nil
}

func (b *buffer) Unlock() {
	b.mu.Lock()
	b.locked = false
	b.mu.Unlock()
}

func (b *buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return accel.ErrClosed
	}
	b.closed = true
	return nil
}

// image returns the backing image for use on the stream.
func (b *buffer) image() (*accel.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, accel.ErrClosed
	}
	return b.img, nil
}
