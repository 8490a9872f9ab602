// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for volumetric tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Direct-loop Conv3D and ConvTranspose3D with their gradients
//   - Float32 and Float64 element-wise kernels
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	backend := cpu.New()
//	x := tensor.Randn[float32](tensor.Shape{2, 3, 1, 32, 32}, tensor.NewRand(1), backend)
//	y := x.Abs().Mean()
//
// # Performance
//
// Convolutions fan out over (batch, channel) work items on all cores.
// Small workloads run sequentially.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
