package neuralnet

import (
	"fmt"
	"strings"
)

// NeuronLayer holds one bias per unit and applies an elementwise activation.
//
// Bias and its gradient accumulator are always owned by the layer. The four
// signal/error buffers are allocated here but may be replaced by the composing
// owner so that neighbouring layers share them; once replaced the layer only
// holds a view.
type NeuronLayer struct {
	size       int
	bias       []float32
	biasGrad   []float32
	signalIn   []float32
	signalOut  []float32
	errorIn    []float32
	errorOut   []float32
	activation ActivationFunction
}

// NewNeuronLayer creates a layer of n units with the identity transform.
func NewNeuronLayer(n int) *NeuronLayer {
	return NewNeuronLayerWith(n, Linear{})
}

// NewSigmoidNeuronLayer creates a layer of n units squashing into (-1, 1).
func NewSigmoidNeuronLayer(n int) *NeuronLayer {
	return NewNeuronLayerWith(n, SymmetricSigmoid{})
}

func NewNeuronLayerWith(n int, activation ActivationFunction) *NeuronLayer {
	if n < 0 {
		panic(fmt.Sprintf("neuron layer: invalid size %d", n))
	}
	if activation == nil {
		activation = Linear{}
	}
	return &NeuronLayer{
		size:       n,
		bias:       make([]float32, n),
		biasGrad:   make([]float32, n),
		signalIn:   make([]float32, n),
		signalOut:  make([]float32, n),
		errorIn:    make([]float32, n),
		errorOut:   make([]float32, n),
		activation: activation,
	}
}

func (l *NeuronLayer) Size() int                      { return l.size }
func (l *NeuronLayer) Bias() []float32                { return l.bias }
func (l *NeuronLayer) BiasGrad() []float32            { return l.biasGrad }
func (l *NeuronLayer) SignalIn() []float32            { return l.signalIn }
func (l *NeuronLayer) SignalOut() []float32           { return l.signalOut }
func (l *NeuronLayer) ErrorIn() []float32             { return l.errorIn }
func (l *NeuronLayer) ErrorOut() []float32            { return l.errorOut }
func (l *NeuronLayer) Activation() ActivationFunction { return l.activation }

func (l *NeuronLayer) SetActivation(activation ActivationFunction) {
	if activation == nil {
		activation = Linear{}
	}
	l.activation = activation
}

func (l *NeuronLayer) SetSignalIn(buf []float32) error {
	if err := checkLen("neuron signal-in", buf, l.size); err != nil {
		return err
	}
	l.signalIn = buf
	return nil
}

func (l *NeuronLayer) SetSignalOut(buf []float32) error {
	if err := checkLen("neuron signal-out", buf, l.size); err != nil {
		return err
	}
	l.signalOut = buf
	return nil
}

func (l *NeuronLayer) SetErrorIn(buf []float32) error {
	if err := checkLen("neuron error-in", buf, l.size); err != nil {
		return err
	}
	l.errorIn = buf
	return nil
}

func (l *NeuronLayer) SetErrorOut(buf []float32) error {
	if err := checkLen("neuron error-out", buf, l.size); err != nil {
		return err
	}
	l.errorOut = buf
	return nil
}

func (l *NeuronLayer) ForwardSignal() {
	mustBound("neuron forward", l.signalIn, l.signalOut)
	in, out, bias := l.signalIn[:l.size], l.signalOut[:l.size], l.bias[:l.size]
	for i := range out {
		out[i] = l.activation.Activate(in[i] + bias[i])
	}
}

// FeedBackError scales the incoming error by the activation derivative at the
// cached output and accumulates it into the bias gradient.
func (l *NeuronLayer) FeedBackError() {
	mustBound("neuron feedback", l.signalOut, l.errorIn, l.errorOut)
	out, errIn, errOut, grad := l.signalOut[:l.size], l.errorIn[:l.size], l.errorOut[:l.size], l.biasGrad[:l.size]
	for i := range errOut {
		errOut[i] = errIn[i] * l.activation.Derivative(out[i])
		grad[i] += errOut[i]
	}
}

// UpdateGain recomputes signal-out as if gain had been committed, leaving bias untouched.
func (l *NeuronLayer) UpdateGain(gain float32) {
	mustBound("neuron gain", l.signalIn, l.signalOut)
	in, out := l.signalIn[:l.size], l.signalOut[:l.size]
	for i := range out {
		out[i] = l.activation.Activate(in[i] + (l.bias[i] + gain*l.biasGrad[i]))
	}
}

// UpdateWeight commits the step and decays the accumulator by momentum; it is never reset.
func (l *NeuronLayer) UpdateWeight(gain, momentum float32) {
	for i := range l.bias {
		l.bias[i] += gain * l.biasGrad[i]
		l.biasGrad[i] = momentum * l.biasGrad[i]
	}
}

func (l *NeuronLayer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Neuron %d (%T):\n", l.size, l.activation))
	for i := 0; i < l.size; i++ {
		sb.WriteString(fmt.Sprintf("  unit %d: bias=%.4f grad=%.4f out=%.4f\n", i, l.bias[i], l.biasGrad[i], l.signalOut[i]))
	}
	return sb.String()
}
