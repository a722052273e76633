package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// jacobianStep is the finite-difference step; smaller steps drown in float32 rounding.
const jacobianStep = 1e-2

// Network is an alternating chain neuron, synapse, neuron, ..., neuron.
//
// All neuron buffers are views into one arena owned by the network, and each
// synapse aliases the buffers of the neuron layers on either side, so the
// phases run without copying between layers. A Network is not safe for
// concurrent use.
type Network struct {
	neurons  []*NeuronLayer
	synapses []*SynapseLayer
	arena    *bufferArena
}

// NewNetwork builds inputs → hidden... → outputs. The input and output layers
// are linear, hidden layers use SymmetricSigmoid; SetActivation changes that.
// With no hidden layers the network is two neuron layers and one synapse.
// Weights start at zero, call Randomize before training.
func NewNetwork(inputs int, hidden []int, outputs int) (*Network, error) {
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, inputs)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, outputs)

	total := 0
	for k, size := range sizes {
		if size <= 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "layer %d: invalid size %d", k, size)
		}
		total += 4 * size
	}

	nn := &Network{
		neurons:  make([]*NeuronLayer, len(sizes)),
		synapses: make([]*SynapseLayer, len(sizes)-1),
		arena:    newBufferArena(total),
	}

	for k, size := range sizes {
		var activation ActivationFunction = SymmetricSigmoid{}
		if k == 0 || k == len(sizes)-1 {
			activation = Linear{}
		}
		layer := NewNeuronLayerWith(size, activation)
		if err := nn.arena.takeLayer(size).bind(layer); err != nil {
			return nil, errors.Wrapf(err, "binding layer %d", k)
		}
		nn.neurons[k] = layer
	}

	for k := range nn.synapses {
		s := NewSynapseLayer(sizes[k], sizes[k+1])
		if err := s.Connect(nn.neurons[k], nn.neurons[k+1]); err != nil {
			return nil, errors.Wrapf(err, "connecting layer %d to %d", k, k+1)
		}
		nn.synapses[k] = s
	}

	return nn, nil
}

// SetActivation swaps the transform of the neuron layer at layerIndex
// (0 is the input layer).
func (nn *Network) SetActivation(layerIndex int, activation ActivationFunction) error {
	if layerIndex < 0 || layerIndex >= len(nn.neurons) {
		return errors.Errorf("layer index %d out of range [0, %d)", layerIndex, len(nn.neurons))
	}
	nn.neurons[layerIndex].SetActivation(activation)
	return nil
}

// Randomize draws all synapse weights from U(-scale, scale).
func (nn *Network) Randomize(rng *rand.Rand, scale float32) {
	for _, s := range nn.synapses {
		RandomizeUniform(rng, s, scale)
	}
}

func (nn *Network) NeuronLayers() []*NeuronLayer   { return nn.neurons }
func (nn *Network) SynapseLayers() []*SynapseLayer { return nn.synapses }

// Layers returns every layer in input to output order.
func (nn *Network) Layers() []Trainable {
	layers := make([]Trainable, 0, len(nn.neurons)+len(nn.synapses))
	for k, s := range nn.synapses {
		layers = append(layers, nn.neurons[k], s)
	}
	return append(layers, nn.neurons[len(nn.neurons)-1])
}

// Input is the input layer's signal-in buffer; write samples here.
func (nn *Network) Input() []float32 {
	return nn.neurons[0].SignalIn()
}

// Output is the output layer's signal-out buffer, valid after ForwardSignal.
func (nn *Network) Output() []float32 {
	return nn.neurons[len(nn.neurons)-1].SignalOut()
}

// OutputError is the output layer's error-in buffer; write target-output here
// before FeedBackError.
func (nn *Network) OutputError() []float32 {
	return nn.neurons[len(nn.neurons)-1].ErrorIn()
}

func (nn *Network) ForwardSignal() {
	for k, s := range nn.synapses {
		nn.neurons[k].ForwardSignal()
		s.ForwardSignal()
	}
	nn.neurons[len(nn.neurons)-1].ForwardSignal()
}

func (nn *Network) FeedBackError() {
	last := len(nn.neurons) - 1
	nn.neurons[last].FeedBackError()
	for k := last - 1; k >= 0; k-- {
		nn.synapses[k].FeedBackError()
		nn.neurons[k].FeedBackError()
	}
}

// UpdateGain previews the output the network would produce if gain were
// committed. Signals are overwritten, parameters are not.
func (nn *Network) UpdateGain(gain float32) {
	for k, s := range nn.synapses {
		nn.neurons[k].UpdateGain(gain)
		s.UpdateGain(gain)
	}
	nn.neurons[len(nn.neurons)-1].UpdateGain(gain)
}

func (nn *Network) UpdateWeight(gain, momentum float32) {
	for _, l := range nn.neurons {
		l.UpdateWeight(gain, momentum)
	}
	for _, s := range nn.synapses {
		s.UpdateWeight(gain, momentum)
	}
}

// Predict runs inference on a copy of input and returns a copy of the output.
func (nn *Network) Predict(input []float32) ([]float32, error) {
	if err := checkLen("network input", input, len(nn.Input())); err != nil {
		return nil, err
	}
	copy(nn.Input(), input)
	nn.ForwardSignal()
	out := make([]float32, len(nn.Output()))
	copy(out, nn.Output())
	return out, nil
}

// Jacobian estimates d output / d input at input with central differences.
// The forward pass is left evaluated at input.
func (nn *Network) Jacobian(input []float32) (*mat.Dense, error) {
	in, out := len(nn.Input()), len(nn.Output())
	if err := checkLen("network input", input, in); err != nil {
		return nil, err
	}
	x := make([]float64, in)
	for i, v := range input {
		x[i] = float64(v)
	}
	jac := mat.NewDense(out, in, nil)
	fd.Jacobian(jac,
		func(y, xs []float64) {
			for i, v := range xs {
				nn.Input()[i] = float32(v)
			}
			nn.ForwardSignal()
			for j, v := range nn.Output() {
				y[j] = float64(v)
			}
		},
		x,
		&fd.JacobianSettings{
			Formula: fd.Central,
			Step:    jacobianStep,
			// evaluations share the network buffers
			Concurrent: false,
		})
	copy(nn.Input(), input)
	nn.ForwardSignal()
	return jac, nil
}

func (nn *Network) String() string {
	var sb strings.Builder
	for k, s := range nn.synapses {
		sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", 2*k, nn.neurons[k].String()))
		sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", 2*k+1, s.String()))
	}
	last := len(nn.neurons) - 1
	sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", 2*last, nn.neurons[last].String()))
	return sb.String()
}
