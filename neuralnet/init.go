package neuralnet

import (
	"math"
	"math/rand"
)

// Weights are left at zero by NewSynapseLayer; these seed them from an
// explicitly passed generator so runs are reproducible.

// RandomizeUniform draws every weight from U(-scale, scale).
func RandomizeUniform(rng *rand.Rand, s *SynapseLayer, scale float32) {
	for k := range s.w {
		s.w[k] = (2*rng.Float32() - 1) * scale
	}
}

// RandomizeXavier draws weights from U(-limit, limit), limit = sqrt(6/(I+J)).
func RandomizeXavier(rng *rand.Rand, s *SynapseLayer) {
	for k := range s.w {
		s.w[k] = xavierInit(rng, s.inputs, s.outputs)
	}
}

// RandomizeBias draws every bias from U(-scale, scale).
func RandomizeBias(rng *rand.Rand, l *NeuronLayer, scale float32) {
	for i := range l.bias {
		l.bias[i] = (2*rng.Float32() - 1) * scale
	}
}

func xavierInit(rng *rand.Rand, numInputs int, numOutputs int) float32 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return float32(2*rng.Float64()*limit - limit)
}
