package host

import (
	"github.com/sokinpui/stereo-disparity/internal/accel"
	"github.com/sokinpui/stereo-disparity/internal/accel/queue"
)

// stream runs submitted work in order on its own goroutine.
type stream struct {
	q *queue.Queue
}

func newStream(depth int) *stream {
	return &stream{q: queue.New(depth)}
}

// SubmitStereoDisparity queues a disparity computation and returns without
// waiting for it.
func (s *stream) SubmitStereoDisparity(est accel.Estimator, left, right, disparity accel.Buffer, params accel.Params) error {
	e, ok := est.(*estimator)
	if !ok {
		return errForeign("estimator")
	}
	l, r, out, err := hostBuffers(left, right, disparity)
	if err != nil {
		return err
	}
	if err := accel.CheckSubmission(est, left, right, disparity, params); err != nil {
		return err
	}
	return s.q.Enqueue("stereo disparity", func() error {
		return e.run(l, r, out, params)
	})
}

// Sync blocks until every queued job has finished.
func (s *stream) Sync() error {
	return s.q.Wait()
}

// Close waits for outstanding work and stops the worker.
func (s *stream) Close() error {
	return s.q.Close()
}

func hostBuffers(bufs ...accel.Buffer) (*buffer, *buffer, *buffer, error) {
	out := make([]*buffer, len(bufs))
	for i, b := range bufs {
		hb, ok := b.(*buffer)
		if !ok {
			return nil, nil, nil, errForeign("buffer")
		}
		out[i] = hb
	}
	return out[0], out[1], out[2], nil
}
