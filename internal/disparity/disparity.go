// Package disparity loads a rectified stereo pair, runs one disparity
// computation on an accelerator backend and writes the resulting map.
package disparity

import (
	"image"
	"log"
	"time"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// Result describes a completed run.
type Result struct {
	Size accel.Size
	// Disparity is the row-major field in pixels.
	Disparity  []float32
	Stats      Stats
	OutputPath string
	Elapsed    time.Duration
}

// closer is anything Run acquires from the backend.
type closer interface {
	Close() error
}

// release closes c and logs any failure.
func release(c closer, what string) {
	if err := c.Close(); err != nil {
		log.Printf("Error releasing %s: %v", what, err)
	}
}

// Run is the main application logic. Resources taken from backend are
// released in reverse order on every return path.
func Run(cfg *Config, backend accel.Backend) (*Result, error) {
	log.Printf("Starting stereo disparity on device '%s'.", backend.Name())
	startTime := time.Now()

	left, err := loadGray(cfg.LeftPath, cfg.ImageType)
	if err != nil {
		return nil, stageError(ErrLoad, "load left image", err)
	}
	right, err := loadGray(cfg.RightPath, cfg.ImageType)
	if err != nil {
		return nil, stageError(ErrLoad, "load right image", err)
	}
	log.Printf("Left image size: %s, right image size: %s", left.Size(), right.Size())

	size := left.Size()
	if right.Size() != size {
		return nil, stageError(ErrWrap, "check image sizes",
			&accel.SizeMismatchError{Want: size, Left: left.Size(), Right: right.Size()})
	}

	stream, err := backend.NewStream()
	if err != nil {
		return nil, stageError(ErrStream, "create stream", err)
	}
	defer release(stream, "stream")

	leftBuf, err := backend.Wrap(left)
	if err != nil {
		return nil, stageError(ErrWrap, "wrap left image", err)
	}
	defer release(leftBuf, "left image")

	rightBuf, err := backend.Wrap(right)
	if err != nil {
		return nil, stageError(ErrWrap, "wrap right image", err)
	}
	defer release(rightBuf, "right image")
	log.Println("Images wrapped for the accelerator.")

	if cfg.DumpWrapped {
		if err := dumpWrapped(leftBuf, cfg.WrappedPath); err != nil {
			return nil, err
		}
	}

	outSize := cfg.Estimator.OutputSize(size)
	dispBuf, err := backend.NewBuffer(outSize, accel.FormatS16)
	if err != nil {
		return nil, stageError(ErrWrap, "create disparity image", err)
	}
	defer release(dispBuf, "disparity image")

	estimator, err := backend.NewStereoEstimator(size, accel.FormatU8, cfg.Estimator)
	if err != nil {
		return nil, stageError(ErrEstimatorCreate, "create stereo disparity estimator", err)
	}
	defer release(estimator, "stereo disparity estimator")

	if err := stream.SubmitStereoDisparity(estimator, leftBuf, rightBuf, dispBuf, cfg.Params); err != nil {
		return nil, stageError(ErrSubmit, "submit stereo disparity estimator", err)
	}
	if err := waitWithSpinner(cfg.Quiet, "Estimating disparity", stream.Sync); err != nil {
		return nil, stageError(ErrSync, "synchronize stream", err)
	}

	disp, err := dispBuf.Lock()
	if err != nil {
		return nil, stageError(ErrReadback, "lock disparity image", err)
	}
	field := accel.DecodeDisparity(disp)
	dispBuf.Unlock()

	maxDisparity := cfg.Params.EffectiveMaxDisparity(cfg.Estimator)
	if err := saveImage(cfg.OutputPath, renderOutput(cfg, field, outSize, maxDisparity)); err != nil {
		return nil, stageError(ErrWrite, "write disparity map", err)
	}

	res := &Result{
		Size:       outSize,
		Disparity:  field,
		Stats:      computeStats(field),
		OutputPath: cfg.OutputPath,
		Elapsed:    time.Since(startTime),
	}
	log.Printf("Disparity saved to %s in %s (%.1f%% valid).", res.OutputPath, res.Elapsed, 100*res.Stats.ValidRatio())
	if !cfg.Quiet {
		printReport(res)
	}
	return res, nil
}

func renderOutput(cfg *Config, field []float32, size accel.Size, maxDisparity int) image.Image {
	switch {
	case cfg.Raw:
		return renderRaw(field, size)
	case cfg.Colormap:
		return renderColormap(field, size, maxDisparity)
	default:
		return renderGray(field, size, maxDisparity)
	}
}

// dumpWrapped reads the wrapped left image back through the backend and
// saves it, confirming the wrapper sees the loaded pixels.
func dumpWrapped(buf accel.Buffer, path string) error {
	view, err := buf.Lock()
	if err != nil {
		return stageError(ErrReadback, "lock wrapped left image", err)
	}
	defer buf.Unlock()

	if view.Format != accel.FormatU8 {
		return stageError(ErrReadback, "lock wrapped left image", &accel.FormatError{Want: accel.FormatU8, Got: view.Format})
	}
	if err := saveImage(path, grayView(view)); err != nil {
		return stageError(ErrWrite, "write wrapped left image", err)
	}
	return nil
}
