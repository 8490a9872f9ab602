// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for volumetric tensors.
//
// The package defines core interfaces and types for type-safe tensor operations:
//   - Tensor[T, B]: High-level generic tensor with type safety
//   - RawTensor: Low-level tensor representation
//   - Backend: Interface for compute implementations
//   - Shape, Dims3, DataType, Device: Core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Randn[float32](tensor.Shape{1, 3, 5, 64, 64}, tensor.NewRand(42), backend)
//	y := x.MulScalar(2).Add(x)
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/tensor"
)

// DType is a constraint for tensor data types: float32 or float64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// CPU is the host device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor.
// Volumes are Shape{N, C, T, H, W}.
type Shape = tensor.Shape

// Dims3 holds one value per volumetric axis (temporal, height, width) and
// is used for strides, paddings and extents.
type Dims3 = tensor.Dims3

// Tensor is a generic type-safe tensor.
//
// T is the data type (float32 or float64).
// B is the backend implementation.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Uniform returns a Dims3 with v on every axis.
func Uniform(v int) Dims3 {
	return tensor.Uniform(v)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	logvar := tensor.Full[float32](tensor.Shape{1, 64, 1, 4, 4}, -10, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// NewRand returns a PCG generator seeded with seed. Zero draws a seed from
// the clock.
func NewRand(seed uint64) *rand.Rand {
	return tensor.NewRand(seed)
}

// Randn creates a tensor with values from N(0, 1) drawn from rng.
// Identically seeded generators give identical tensors.
//
// Example:
//
//	x := tensor.Randn[float32](tensor.Shape{2, 3, 1, 32, 32}, tensor.NewRand(7), backend)
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, rng, b)
}

// RandUniform creates a tensor with values from U(low, high) drawn from rng.
func RandUniform[T DType, B Backend](shape Shape, low, high float64, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.RandUniform[T, B](shape, low, high, rng, b)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{1, 1, 1, 2, 3}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// New creates a tensor from a raw tensor.
//
// This is a low-level function. Most users should use creation functions like
// Zeros, Randn, or FromSlice instead.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a new raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// IsFinite reports whether no element of t is NaN or infinite.
func IsFinite[T DType, B Backend](t *Tensor[T, B]) bool {
	return tensor.IsFinite(t)
}

// BroadcastShapes computes the broadcast shape for two shapes following NumPy
// broadcasting rules.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
