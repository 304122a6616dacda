// Package cuda is the NVIDIA GPU stereo-disparity backend. Matching costs are
// computed on the device through OpenCV's CUDA modules (gocv) on a dedicated
// CUDA stream; path aggregation and disparity selection run on the host.
//
// Build tags:
//   - Build with: go build -tags cuda
//   - Without CUDA: New reports that the backend is unavailable
//
// OpenCV must be compiled with CUDA support and at least one CUDA-capable
// device must be present.
package cuda

// Name is the device name this backend registers under.
const Name = "cuda"

// truncatedCost caps the absolute intensity difference used as matching cost.
const truncatedCost = 31
