package neuralnet

import (
	"math"

	"github.com/chewxy/math32"
)

// ActivationFunction is the elementwise transform of a NeuronLayer.
// Derivative is expressed in terms of the transform's output y, which is what
// the layer has cached in its signal-out buffer during the backward pass.
type ActivationFunction interface {
	Activate(x float32) float32
	Derivative(y float32) float32
}

type Linear struct{}

func (Linear) Activate(x float32) float32 {
	return x
}

func (Linear) Derivative(y float32) float32 {
	return 1
}

// SymmetricSigmoid squashes into (-1, 1): 2/(1+exp(-2x)) - 1, which equals tanh(x).
type SymmetricSigmoid struct{}

func (SymmetricSigmoid) Activate(x float32) float32 {
	return 2/(1+math32.Exp(-2*x)) - 1
}

func (SymmetricSigmoid) Derivative(y float32) float32 {
	return 1 - y*y
}

// Sigmoid is the logistic function with range (0, 1).
type Sigmoid struct{}

func (Sigmoid) Activate(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func (Sigmoid) Derivative(y float32) float32 {
	return y * (1 - y)
}

type Tanh struct{}

func (Tanh) Activate(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

func (Tanh) Derivative(y float32) float32 {
	return 1 - y*y
}

type ReLU struct{}

func (ReLU) Activate(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

func (ReLU) Derivative(y float32) float32 {
	if y > 0 {
		return 1
	}
	return 0
}

// LeakyReLU keeps the sign of its input, so the derivative can be read off the
// output as long as Alpha is positive.
type LeakyReLU struct {
	Alpha float32
}

func NewLeakyReLU(alpha float32) LeakyReLU {
	return LeakyReLU{Alpha: alpha}
}

func (l LeakyReLU) Activate(x float32) float32 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

func (l LeakyReLU) Derivative(y float32) float32 {
	if y > 0 {
		return 1
	}
	return l.Alpha
}
