package neuralnet

import "github.com/pkg/errors"

// Optimizer commits the accumulated gradients of a Trainable.
type Optimizer interface {
	Apply(t Trainable, gain float32, params *Params) error
}

// SGD is gradient descent with classical momentum: the gradient accumulators
// are decayed by params.Momentum after every step instead of being reset.
type SGD struct{}

func (SGD) Apply(t Trainable, gain float32, params *Params) error {
	if gain < 0 {
		return errors.Errorf("invalid gain %v", gain)
	}
	if params.Momentum < 0 || params.Momentum >= 1 {
		return errors.Wrapf(ErrInvalidParams, "momentum %v must be in [0, 1)", params.Momentum)
	}
	t.UpdateWeight(gain, params.Momentum)
	return nil
}
