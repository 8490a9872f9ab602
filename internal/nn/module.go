// Package nn implements the neural network modules used by the volumetric VAE.
//
// This package provides building blocks for constructing 3D convolutional networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Trainable parameters with gradient tracking
//   - Conv3D, ConvTranspose3D: volumetric (transposed) convolutions
//   - LeakyReLU activation
//   - Normalization: batch, instance, group and identity, resolved by name
//   - Loss functions: L1Loss, GaussianKL
//   - Sequential: Container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/born-ml/vae3d/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	block := nn.NewSequential[B](
//	    nn.NewConv3D(3, 8, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, rng, backend),
//	    nn.NewLeakyReLU[B](0.2),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Conv3D expects [batch, in_channels, T, H, W].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	//
	// This includes weights, biases, and any nested module parameters.
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter[B]
}

// NumParameters returns the total number of trainable scalars in m.
func NumParameters[B tensor.Backend](m Module[B]) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().NumElements()
	}
	return total
}

// Trainable is implemented by modules whose forward pass differs between
// training and inference, such as batch normalization.
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches m to training or inference mode if it is Trainable.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}
