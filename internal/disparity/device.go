package disparity

import (
	"fmt"
	"strings"

	"github.com/sokinpui/stereo-disparity/internal/accel"
	"github.com/sokinpui/stereo-disparity/internal/accel/cuda"
	"github.com/sokinpui/stereo-disparity/internal/accel/host"
)

// Devices lists the accepted --device values.
var Devices = []string{host.Name, cuda.Name}

// NewBackend returns the accelerator for the specified device.
func NewBackend(device string, workers int) (accel.Backend, error) {
	switch strings.ToLower(device) {
	case host.Name:
		return host.New(workers), nil
	case cuda.Name:
		return cuda.New(workers)
	default:
		return nil, fmt.Errorf("unsupported device: %s", device)
	}
}
