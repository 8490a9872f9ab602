// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/vae3d/internal/tensor"
)

// RawTensor is the low-level tensor representation: a contiguous row-major
// buffer with shape, dtype and device.
//
// Most users should use the high-level Tensor[T, B] type instead.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32() // zero-copy view
//	clone := raw.Clone()    // deep copy
type RawTensor = tensor.RawTensor
