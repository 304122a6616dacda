//go:build !cuda

package cuda

import (
	"errors"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// ErrUnavailable is returned when the binary was built without CUDA support.
var ErrUnavailable = errors.New("CUDA support is not compiled in; rebuild with -tags cuda")

// New reports that the backend is unavailable.
func New(workers int) (accel.Backend, error) {
	return nil, ErrUnavailable
}
