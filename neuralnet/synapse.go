package neuralnet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// SynapseLayer fully connects I inputs to J outputs.
//
// Weights and their gradients are J×I row-major float32 tensors owned by the
// layer. The four signal/error buffers are never allocated here: they are views
// into neighbouring layers, assigned with Connect or the Set* methods.
type SynapseLayer struct {
	inputs, outputs int

	weights     *tensor.Dense
	weightGrads *tensor.Dense
	// scratch for gain×weightGrads
	step *tensor.Dense
	// backing slices of weights and weightGrads, element [j,i] at j*inputs+i
	w, dw []float32

	// [I]
	signalIn, errorOut []float32
	// [J]
	signalOut, errorIn []float32
}

// NewSynapseLayer allocates an I×J connection. Weights start at zero and should
// be randomized before training; gradients start at zero.
func NewSynapseLayer(inputs, outputs int) *SynapseLayer {
	if inputs <= 0 || outputs <= 0 {
		panic(fmt.Sprintf("synapse layer: invalid shape %dx%d", inputs, outputs))
	}
	s := &SynapseLayer{
		inputs:  inputs,
		outputs: outputs,
		w:       make([]float32, inputs*outputs),
		dw:      make([]float32, inputs*outputs),
	}
	s.weights = tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(outputs, inputs), tensor.WithBacking(s.w))
	s.weightGrads = tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(outputs, inputs), tensor.WithBacking(s.dw))
	s.step = tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(outputs, inputs))
	return s
}

func (s *SynapseLayer) Inputs() int  { return s.inputs }
func (s *SynapseLayer) Outputs() int { return s.outputs }

// Weights returns the J×I weight tensor. It shares storage with the layer.
func (s *SynapseLayer) Weights() *tensor.Dense { return s.weights }

// WeightGrads returns the J×I gradient accumulator tensor. It shares storage with the layer.
func (s *SynapseLayer) WeightGrads() *tensor.Dense { return s.weightGrads }

func (s *SynapseLayer) Weight(j, i int) float32 {
	return s.w[s.index(j, i)]
}

func (s *SynapseLayer) SetWeight(j, i int, v float32) {
	s.w[s.index(j, i)] = v
}

func (s *SynapseLayer) WeightGrad(j, i int) float32 {
	return s.dw[s.index(j, i)]
}

// SetWeights copies a J-row, I-column matrix into the layer.
func (s *SynapseLayer) SetWeights(rows [][]float32) error {
	if len(rows) != s.outputs {
		return errors.Wrapf(ErrShapeMismatch, "synapse weights: got %d rows, want %d", len(rows), s.outputs)
	}
	for j, row := range rows {
		if err := checkLen(fmt.Sprintf("synapse weights row %d", j), row, s.inputs); err != nil {
			return err
		}
		copy(s.w[j*s.inputs:(j+1)*s.inputs], row)
	}
	return nil
}

// Matrix returns a float64 copy of the weights.
func (s *SynapseLayer) Matrix() *mat.Dense {
	data := make([]float64, len(s.w))
	for k, v := range s.w {
		data[k] = float64(v)
	}
	return mat.NewDense(s.outputs, s.inputs, data)
}

func (s *SynapseLayer) index(j, i int) int {
	if j < 0 || j >= s.outputs || i < 0 || i >= s.inputs {
		panic(fmt.Sprintf("synapse layer: index [%d,%d] out of range %dx%d", j, i, s.outputs, s.inputs))
	}
	return j*s.inputs + i
}

func (s *SynapseLayer) SignalIn() []float32  { return s.signalIn }
func (s *SynapseLayer) SignalOut() []float32 { return s.signalOut }
func (s *SynapseLayer) ErrorIn() []float32   { return s.errorIn }
func (s *SynapseLayer) ErrorOut() []float32  { return s.errorOut }

func (s *SynapseLayer) SetSignalIn(buf []float32) error {
	if err := checkLen("synapse signal-in", buf, s.inputs); err != nil {
		return err
	}
	s.signalIn = buf
	return nil
}

func (s *SynapseLayer) SetSignalOut(buf []float32) error {
	if err := checkLen("synapse signal-out", buf, s.outputs); err != nil {
		return err
	}
	s.signalOut = buf
	return nil
}

func (s *SynapseLayer) SetErrorIn(buf []float32) error {
	if err := checkLen("synapse error-in", buf, s.outputs); err != nil {
		return err
	}
	s.errorIn = buf
	return nil
}

func (s *SynapseLayer) SetErrorOut(buf []float32) error {
	if err := checkLen("synapse error-out", buf, s.inputs); err != nil {
		return err
	}
	s.errorOut = buf
	return nil
}

// Connect aliases the layer's buffers to the neuron layers on either side:
// prev's signal-out and error-in, next's signal-in and error-out.
func (s *SynapseLayer) Connect(prev, next *NeuronLayer) error {
	if prev.Size() != s.inputs {
		return errors.Wrapf(ErrShapeMismatch, "synapse %dx%d: upstream layer has %d units", s.inputs, s.outputs, prev.Size())
	}
	if next.Size() != s.outputs {
		return errors.Wrapf(ErrShapeMismatch, "synapse %dx%d: downstream layer has %d units", s.inputs, s.outputs, next.Size())
	}
	if err := s.SetSignalIn(prev.SignalOut()); err != nil {
		return err
	}
	if err := s.SetErrorOut(prev.ErrorIn()); err != nil {
		return err
	}
	if err := s.SetSignalOut(next.SignalIn()); err != nil {
		return err
	}
	return s.SetErrorIn(next.ErrorOut())
}

func (s *SynapseLayer) ForwardSignal() {
	mustBound("synapse forward", s.signalIn, s.signalOut)
	in := s.signalIn[:s.inputs]
	for j := 0; j < s.outputs; j++ {
		row := s.w[j*s.inputs : (j+1)*s.inputs]
		var sum float32
		for i, x := range in {
			sum += x * row[i]
		}
		s.signalOut[j] = sum
	}
}

// FeedBackError accumulates the outer product of cached input and incoming
// error into the gradient and propagates error through the transposed weights.
func (s *SynapseLayer) FeedBackError() {
	mustBound("synapse feedback", s.signalIn, s.errorIn, s.errorOut)
	in, errOut := s.signalIn[:s.inputs], s.errorOut[:s.inputs]
	for i := range errOut {
		errOut[i] = 0
	}
	for j := 0; j < s.outputs; j++ {
		e := s.errorIn[j]
		row := s.w[j*s.inputs : (j+1)*s.inputs]
		grad := s.dw[j*s.inputs : (j+1)*s.inputs]
		for i, x := range in {
			grad[i] += x * e
			errOut[i] += e * row[i]
		}
	}
}

// UpdateGain runs the forward product with weights shifted by gain×gradient,
// leaving the committed weights untouched.
func (s *SynapseLayer) UpdateGain(gain float32) {
	mustBound("synapse gain", s.signalIn, s.signalOut)
	in := s.signalIn[:s.inputs]
	for j := 0; j < s.outputs; j++ {
		row := s.w[j*s.inputs : (j+1)*s.inputs]
		grad := s.dw[j*s.inputs : (j+1)*s.inputs]
		var sum float32
		for i, x := range in {
			sum += x * (row[i] + gain*grad[i])
		}
		s.signalOut[j] = sum
	}
}

// UpdateWeight commits weights += gain×gradients and decays the gradients
// by momentum, both in place on the tensors.
func (s *SynapseLayer) UpdateWeight(gain, momentum float32) {
	if _, err := s.weightGrads.MulScalar(gain, true, tensor.WithReuse(s.step)); err != nil {
		panic(errors.Wrap(err, "synapse update"))
	}
	if _, err := s.weights.Add(s.step, tensor.UseUnsafe()); err != nil {
		panic(errors.Wrap(err, "synapse update"))
	}
	if _, err := s.weightGrads.MulScalar(momentum, true, tensor.UseUnsafe()); err != nil {
		panic(errors.Wrap(err, "synapse momentum"))
	}
}

func (s *SynapseLayer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Synapse %dx%d:\n", s.inputs, s.outputs))
	for j := 0; j < s.outputs; j++ {
		sb.WriteString(fmt.Sprintf("  row %d: %v\n", j, s.w[j*s.inputs:(j+1)*s.inputs]))
	}
	return sb.String()
}
