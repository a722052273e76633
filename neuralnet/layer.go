package neuralnet

import (
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when layers or buffers with inconsistent lengths are wired together.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnbound is the panic value when a layer runs before its buffers were assigned.
	ErrUnbound = errors.New("buffer not bound")
	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid params")
)

// Trainable is the training contract shared by every layer and by Network.
//
// One training step calls ForwardSignal input to output, FeedBackError output
// to input, optionally UpdateGain to preview a step, and finally UpdateWeight.
// FeedBackError must follow ForwardSignal for the same sample; this is not checked.
type Trainable interface {
	ForwardSignal()
	FeedBackError()
	UpdateGain(gain float32)
	UpdateWeight(gain, momentum float32)
}

func checkLen(what string, buf []float32, want int) error {
	if len(buf) != want {
		return errors.Wrapf(ErrShapeMismatch, "%s: got length %d, want %d", what, len(buf), want)
	}
	return nil
}

func mustBound(layer string, bufs ...[]float32) {
	for _, b := range bufs {
		if b == nil {
			panic(errors.Wrapf(ErrUnbound, "%s", layer))
		}
	}
}
