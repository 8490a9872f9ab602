// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/vae3d/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: Pure Go kernels with intra-op parallelism
//
// Decorator backends for additional functionality:
//   - autodiff: Automatic differentiation (wraps any backend)
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Scalar operations (element-wise with scalar).
	MulScalar(x *RawTensor, scalar any) *RawTensor // Multiply by scalar.
	AddScalar(x *RawTensor, scalar any) *RawTensor // Add scalar.

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor                      // Exponential.
	Abs(x *RawTensor) *RawTensor                      // Absolute value.
	Rsqrt(x *RawTensor) *RawTensor                    // Reciprocal square root (1/sqrt(x)).
	LeakyReLU(x *RawTensor, slope float32) *RawTensor // x if x > 0, slope*x otherwise.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                            // Total sum (scalar result).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dimension.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dimension.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.

	// Volumetric convolutions over [N, C, T, H, W].
	Conv3D(input, kernel *RawTensor, stride, padding Dims3) *RawTensor
	Conv3DInputBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor
	Conv3DKernelBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor
	ConvTranspose3D(input, kernel *RawTensor, stride, padding, outputPadding Dims3) *RawTensor
	ConvTranspose3DInputBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor
	ConvTranspose3DKernelBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor

	// Metadata.
	Name() string   // Backend name (e.g., "CPU").
	Device() Device // Device type.
}

// Compile-time check that internal Backend implements public Backend.
var _ Backend = tensor.Backend(nil)
