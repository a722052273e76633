package neuralnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

func TestNewSynapseLayer(t *testing.T) {
	syn := NewSynapseLayer(11, 13)

	assert.Equal(t, 11, syn.Inputs())
	assert.Equal(t, 13, syn.Outputs())

	assert.Nil(t, syn.SignalIn())
	assert.Nil(t, syn.ErrorOut())
	assert.Nil(t, syn.ErrorIn())
	assert.Nil(t, syn.SignalOut())

	for _, w := range []*tensor.Dense{syn.Weights(), syn.WeightGrads()} {
		require.NotNil(t, w)
		assert.True(t, w.Shape().Eq(tensor.Shape{13, 11}), "shape %v", w.Shape())
		assert.Equal(t, tensor.Float32, w.Dtype())
		assert.Len(t, w.Data().([]float32), 13*11)
	}

	assert.Panics(t, func() { NewSynapseLayer(0, 3) })
}

func TestSynapseLayerWeightsShareStorage(t *testing.T) {
	syn := NewSynapseLayer(3, 2)
	syn.SetWeight(1, 2, 4.5)
	v, err := syn.Weights().At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(4.5), v)
	assert.Equal(t, 4.5, syn.Matrix().At(1, 2))
	assert.Panics(t, func() { syn.Weight(2, 0) })
}

func TestSynapseLayerForwardSignal(t *testing.T) {
	syn := NewSynapseLayer(3, 5)
	require.NoError(t, syn.SetSignalIn([]float32{1, 2, 3}))
	require.NoError(t, syn.SetSignalOut([]float32{1, 1, 1, 1, 1}))
	require.NoError(t, syn.SetWeights([][]float32{
		{1, 2, 3},
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{6, 5, 4},
	}))

	syn.ForwardSignal()

	assert.Equal(t, []float32{14, 0, 0, 0, 28}, syn.SignalOut())
}

// signal-out = weight · signal-in, checked against gonum for random shapes.
func TestSynapseLayerForwardMatchesMatVec(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		in, out := 1+rng.Intn(8), 1+rng.Intn(8)
		syn := NewSynapseLayer(in, out)
		RandomizeUniform(rng, syn, 2)

		x := make([]float32, in)
		x64 := make([]float64, in)
		for i := range x {
			x[i] = rng.Float32()*2 - 1
			x64[i] = float64(x[i])
		}
		require.NoError(t, syn.SetSignalIn(x))
		require.NoError(t, syn.SetSignalOut(make([]float32, out)))
		syn.ForwardSignal()

		var want mat.VecDense
		want.MulVec(syn.Matrix(), mat.NewVecDense(in, x64))
		for j := 0; j < out; j++ {
			assert.InDelta(t, want.AtVec(j), syn.SignalOut()[j], 1e-4)
		}
	}
}

func TestSynapseLayerFeedBackError(t *testing.T) {
	syn := NewSynapseLayer(2, 2)
	require.NoError(t, syn.SetWeights([][]float32{{1, 2}, {3, 4}}))
	errOut := []float32{100, 100}
	require.NoError(t, syn.SetSignalIn([]float32{1, -1}))
	require.NoError(t, syn.SetErrorIn([]float32{0.5, 2}))
	require.NoError(t, syn.SetErrorOut(errOut))

	syn.FeedBackError()

	assert.Equal(t, []float32{6.5, 9}, errOut)
	assert.Equal(t, []float32{0.5, -0.5, 2, -2}, syn.WeightGrads().Data())

	syn.FeedBackError()
	assert.Equal(t, []float32{6.5, 9}, errOut)
	assert.Equal(t, []float32{1, -1, 4, -4}, syn.WeightGrads().Data())
}

// With I != J the gain preview must address weights by [j,i] like ForwardSignal.
func TestSynapseLayerUpdateGain(t *testing.T) {
	syn := NewSynapseLayer(2, 3)
	require.NoError(t, syn.SetWeights([][]float32{{1, 2}, {3, 4}, {5, 6}}))
	require.NoError(t, syn.SetSignalIn([]float32{1, 0.5}))
	require.NoError(t, syn.SetSignalOut(make([]float32, 3)))
	require.NoError(t, syn.SetErrorIn([]float32{1, -1, 2}))
	require.NoError(t, syn.SetErrorOut(make([]float32, 2)))
	syn.FeedBackError()
	// gradients: [[1, 0.5], [-1, -0.5], [2, 1]]

	syn.UpdateGain(0.5)
	assert.Equal(t, []float32{2.625, 4.375, 9.25}, syn.SignalOut())
	assert.Equal(t, float32(1), syn.Weight(0, 0))

	preview := append([]float32(nil), syn.SignalOut()...)
	syn.UpdateWeight(0.5, 0.5)
	syn.ForwardSignal()
	assert.Equal(t, preview, syn.SignalOut())
}

func TestSynapseLayerUpdateWeightMomentum(t *testing.T) {
	syn := NewSynapseLayer(1, 2)
	require.NoError(t, syn.SetWeights([][]float32{{1}, {2}}))
	grads := syn.WeightGrads().Data().([]float32)
	copy(grads, []float32{2, -4})

	syn.UpdateWeight(0.5, 0.25)

	assert.Equal(t, float32(2), syn.Weight(0, 0))
	assert.Equal(t, float32(0), syn.Weight(1, 0))
	assert.Equal(t, []float32{0.5, -1}, grads)

	// a single weight is a scalar-equivalent tensor
	one := NewSynapseLayer(1, 1)
	one.SetWeight(0, 0, 1)
	one.WeightGrads().Data().([]float32)[0] = 4
	one.UpdateWeight(0.5, 0.25)
	one.UpdateWeight(0.5, 0.25)
	assert.Equal(t, float32(3.5), one.Weight(0, 0))
	assert.Equal(t, float32(0.25), one.WeightGrad(0, 0))
}

func TestSynapseLayerWiringErrors(t *testing.T) {
	syn := NewSynapseLayer(3, 2)

	err := syn.Connect(NewNeuronLayer(2), NewNeuronLayer(2))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = syn.Connect(NewNeuronLayer(3), NewNeuronLayer(3))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = syn.SetWeights([][]float32{{1, 2, 3}})
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = syn.SetWeights([][]float32{{1, 2, 3}, {1, 2}})
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = syn.SetSignalIn(make([]float32, 2))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = syn.SetErrorIn(make([]float32, 3))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)

	prev, next := NewNeuronLayer(3), NewNeuronLayer(2)
	require.NoError(t, syn.Connect(prev, next))
	assert.Same(t, &prev.SignalOut()[0], &syn.SignalIn()[0])
	assert.Same(t, &prev.ErrorIn()[0], &syn.ErrorOut()[0])
	assert.Same(t, &next.SignalIn()[0], &syn.SignalOut()[0])
	assert.Same(t, &next.ErrorOut()[0], &syn.ErrorIn()[0])
}

func TestSynapseLayerUnbound(t *testing.T) {
	syn := NewSynapseLayer(2, 2)
	assertUnbound(t, syn.ForwardSignal)
	assertUnbound(t, syn.FeedBackError)
	assertUnbound(t, func() { syn.UpdateGain(0.1) })
}

// B learns A's weights from A's outputs on shared random inputs.
func TestSynapseLayerConvergence(t *testing.T) {
	const inputCount, outputCount = 2, 3

	synA := NewSynapseLayer(inputCount, outputCount)
	synB := NewSynapseLayer(inputCount, outputCount)

	input := make([]float32, inputCount)
	delta := make([]float32, outputCount)

	require.NoError(t, synA.SetSignalIn(input))
	require.NoError(t, synA.SetSignalOut(make([]float32, outputCount)))
	require.NoError(t, synB.SetSignalIn(input))
	require.NoError(t, synB.SetSignalOut(make([]float32, outputCount)))
	require.NoError(t, synB.SetErrorIn(delta))
	require.NoError(t, synB.SetErrorOut(make([]float32, inputCount)))

	rng := rand.New(rand.NewSource(123456))
	for j := 0; j < outputCount; j++ {
		for i := 0; i < inputCount; i++ {
			synA.SetWeight(j, i, rng.Float32()-0.5)
			synB.SetWeight(j, i, rng.Float32()-0.5)
		}
	}

	for iteration := 0; iteration < 300; iteration++ {
		for i := range input {
			input[i] = rng.Float32() - 0.5
		}
		synA.ForwardSignal()
		synB.ForwardSignal()
		for j := range delta {
			delta[j] = synA.SignalOut()[j] - synB.SignalOut()[j]
		}
		synB.FeedBackError()
		synB.UpdateWeight(0.5, 0.25)
	}

	var sum float64
	for j := 0; j < outputCount; j++ {
		for i := 0; i < inputCount; i++ {
			sum += math.Abs(float64(synA.Weight(j, i) - synB.Weight(j, i)))
		}
	}
	assert.InDelta(t, 0, sum, 1e-3)
}
