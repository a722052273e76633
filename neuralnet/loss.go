package neuralnet

// LossFunction measures a network output against its target and produces the
// error signal fed into the output layer.
type LossFunction interface {
	// Compute returns the loss value of output against target.
	Compute(output []float32, target []float32) float32
	// Error writes the descent direction -∂L/∂output into dst.
	Error(output []float32, target []float32, dst []float32)
}

// SquaredError is ½Σ(target-output)².
type SquaredError struct{}

func (SquaredError) Compute(output []float32, target []float32) float32 {
	var loss float32
	for i := range output {
		d := target[i] - output[i]
		loss += 0.5 * d * d
	}
	return loss
}

// Error is target - output, which UpdateWeight's += gain×gradient turns into descent.
func (SquaredError) Error(output []float32, target []float32, dst []float32) {
	for i := range output {
		dst[i] = target[i] - output[i]
	}
}
