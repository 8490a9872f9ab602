// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// CollectGrads stores the gradients of a backward pass on params.
func CollectGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	nn.CollectGrads(params, grads)
}

// NumParameters returns the number of trainable scalars in m.
func NumParameters[B tensor.Backend](m Module[B]) int {
	return nn.NumParameters(m)
}

// Sequential applies modules in order.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a container running modules in order.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Layers

// Init fills a layer's weight and bias.
type Init = nn.Init

// Initializers.
var (
	DefaultConvInit Init = nn.DefaultConvInit
	XavierNormal    Init = nn.XavierNormal
	Xavier          Init = nn.Xavier
)

// Conv3D represents a 3D convolutional layer with bias.
type Conv3D[B tensor.Backend] = nn.Conv3D[B]

// NewConv3D creates a 3D convolution. A nil init selects DefaultConvInit.
//
// Example:
//
//	conv := nn.NewConv3D(3, 64, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), nil, rng, backend)
func NewConv3D[B tensor.Backend](inChannels, outChannels int, kernel, stride, padding tensor.Dims3,
	init Init, rng *rand.Rand, backend B,
) *Conv3D[B] {
	return nn.NewConv3D(inChannels, outChannels, kernel, stride, padding, init, rng, backend)
}

// ConvTranspose3D represents a 3D transposed convolutional layer with bias.
type ConvTranspose3D[B tensor.Backend] = nn.ConvTranspose3D[B]

// NewConvTranspose3D creates a 3D transposed convolution. outputPadding must
// be smaller than stride on every axis.
func NewConvTranspose3D[B tensor.Backend](inChannels, outChannels int, kernel, stride, padding, outputPadding tensor.Dims3,
	init Init, rng *rand.Rand, backend B,
) *ConvTranspose3D[B] {
	return nn.NewConvTranspose3D(inChannels, outChannels, kernel, stride, padding, outputPadding, init, rng, backend)
}

// LeakyReLU represents the leaky rectified linear unit.
type LeakyReLU[B tensor.Backend] = nn.LeakyReLU[B]

// NewLeakyReLU creates a LeakyReLU with the given negative slope.
func NewLeakyReLU[B tensor.Backend](slope float32) *LeakyReLU[B] {
	return nn.NewLeakyReLU[B](slope)
}

// Normalization

// NormConfig carries normalization hyperparameters.
type NormConfig = nn.NormConfig

// Norm3D is a shape-preserving normalization over [N, C, T, H, W].
type Norm3D[B tensor.Backend] = nn.Norm3D[B]

// NormFactory builds a normalization for a channel count.
type NormFactory[B tensor.Backend] = nn.NormFactory[B]

// NormRegistry resolves normalization identifiers to factories.
type NormRegistry[B tensor.Backend] = nn.NormRegistry[B]

// IdentityNorm returns its input unchanged.
type IdentityNorm[B tensor.Backend] = nn.IdentityNorm[B]

// NewIdentityNorm creates a normalization that does nothing.
func NewIdentityNorm[B tensor.Backend]() *IdentityNorm[B] {
	return nn.NewIdentityNorm[B]()
}

// ErrUnknownNorm is returned for identifiers without a factory.
var ErrUnknownNorm = nn.ErrUnknownNorm

// NewNormRegistry returns a registry holding the built-in normalizations.
func NewNormRegistry[B tensor.Backend]() *NormRegistry[B] {
	return nn.NewNormRegistry[B]()
}

// DefaultNormConfig returns Groups 8, Eps 1e-5, Momentum 0.1.
func DefaultNormConfig() NormConfig {
	return nn.DefaultNormConfig()
}

// Loss functions

// L1Loss computes the mean absolute error.
type L1Loss[B tensor.Backend] = nn.L1Loss[B]

// NewL1Loss creates an L1 loss.
func NewL1Loss[B tensor.Backend]() *L1Loss[B] {
	return nn.NewL1Loss[B]()
}

// GaussianKL computes the KL divergence of a diagonal Gaussian to N(0, 1).
type GaussianKL[B tensor.Backend] = nn.GaussianKL[B]

// NewGaussianKL creates a KL divergence term.
func NewGaussianKL[B tensor.Backend]() *GaussianKL[B] {
	return nn.NewGaussianKL[B]()
}
