package neuralnet

import (
	"io"
	"log"
	"math/rand"

	"github.com/pkg/errors"
)

// Sample is one input vector with its expected output.
type Sample struct {
	Input  []float32
	Target []float32
}

// Trainer drives a Network one sample at a time.
type Trainer struct {
	Net       *Network
	Loss      LossFunction
	Optimizer Optimizer
	Params    Params
	// Rand shuffles the sample order every epoch when set.
	Rand   *rand.Rand
	Logger *log.Logger

	// steps taken by earlier Train calls; the gain schedule continues from here
	steps int
}

// NewTrainer uses squared error and SGD. A nil logger discards output.
func NewTrainer(nn *Network, params Params, logger *log.Logger) *Trainer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Trainer{
		Net:       nn,
		Loss:      SquaredError{},
		Optimizer: SGD{},
		Params:    params,
		Logger:    logger,
	}
}

// Train runs Params.Epochs epochs and returns the mean loss of each epoch,
// measured on the forward pass that precedes each update. Repeated calls
// resume the gain schedule where the previous call stopped.
func (t *Trainer) Train(samples []Sample) ([]float32, error) {
	if err := t.Params.Validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("no samples")
	}
	for k, s := range samples {
		if err := t.checkSample(s); err != nil {
			return nil, errors.Wrapf(err, "sample %d", k)
		}
	}

	order := make([]int, len(samples))
	for k := range order {
		order[k] = k
	}
	total := t.steps + t.Params.Epochs*len(samples)
	history := make([]float32, 0, t.Params.Epochs)
	for e := 0; e < t.Params.Epochs; e++ {
		if t.Rand != nil {
			t.Rand.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		}
		var loss, gain float32
		for _, k := range order {
			gain = calculateCurrentGain(&t.Params, t.steps, total)
			l, err := t.Step(samples[k], gain)
			if err != nil {
				return history, errors.Wrapf(err, "epoch %d step %d", e, t.steps)
			}
			loss += l
			t.steps++
		}
		loss /= float32(len(samples))
		history = append(history, loss)
		t.Logger.Printf("epoch %d loss %.4f gain %.4f", e, loss, gain)
	}
	return history, nil
}

// Steps is the number of scheduled steps taken by Train so far.
func (t *Trainer) Steps() int { return t.steps }

// Step trains on one sample with the given gain and returns the loss before the update.
func (t *Trainer) Step(s Sample, gain float32) (float32, error) {
	if err := t.checkSample(s); err != nil {
		return 0, err
	}
	nn := t.Net
	copy(nn.Input(), s.Input)
	nn.ForwardSignal()
	loss := t.Loss.Compute(nn.Output(), s.Target)
	t.Loss.Error(nn.Output(), s.Target, nn.OutputError())
	nn.FeedBackError()

	if len(t.Params.PreviewGains) > 0 {
		gain = t.previewGain(s.Target, gain)
	}
	if err := t.Optimizer.Apply(nn, gain, &t.Params); err != nil {
		return 0, err
	}
	return loss, nil
}

// previewGain returns the candidate gain whose speculative output has the lowest loss.
func (t *Trainer) previewGain(target []float32, gain float32) float32 {
	best, bestLoss := gain, float32(0)
	for k, m := range t.Params.PreviewGains {
		candidate := gain * m
		t.Net.UpdateGain(candidate)
		l := t.Loss.Compute(t.Net.Output(), target)
		if k == 0 || l < bestLoss {
			best, bestLoss = candidate, l
		}
	}
	return best
}

// Evaluate returns the mean loss over samples without training.
func (t *Trainer) Evaluate(samples []Sample) (float32, error) {
	if len(samples) == 0 {
		return 0, errors.New("no samples")
	}
	var loss float32
	for k, s := range samples {
		if err := t.checkSample(s); err != nil {
			return 0, errors.Wrapf(err, "sample %d", k)
		}
		copy(t.Net.Input(), s.Input)
		t.Net.ForwardSignal()
		loss += t.Loss.Compute(t.Net.Output(), s.Target)
	}
	return loss / float32(len(samples)), nil
}

func (t *Trainer) checkSample(s Sample) error {
	if err := checkLen("input", s.Input, len(t.Net.Input())); err != nil {
		return err
	}
	return checkLen("target", s.Target, len(t.Net.Output()))
}
