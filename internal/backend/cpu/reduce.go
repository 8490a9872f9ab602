package cpu

import (
	"fmt"

	"github.com/born-ml/vae3d/internal/parallel"
	"github.com/born-ml/vae3d/internal/tensor"
)

// Sum reduces all elements of x to a scalar tensor of shape [].
// Accumulation runs in float64 so large volumes keep float32 precision.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("sum", x)

	var acc float64
	for _, v := range x.AsFloat32() {
		acc += float64(v)
	}

	result := tensor.MustNewRaw(tensor.Shape{}, tensor.Float32, cpu.device)
	result.AsFloat32()[0] = float32(acc)
	return result
}

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	x: [2, 4, 3, 8, 8]
//	SumDim(x, 0, true)  // [1, 4, 3, 8, 8]
//	SumDim(x, 1, false) // [2, 3, 8, 8]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, 1)
}

// MeanDim averages tensor elements along the specified dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	d := normalizeDim("meandim", dim, len(x.Shape()))
	return cpu.reduceDim("meandim", x, d, keepDim, 1/float64(x.Shape()[d]))
}

func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim bool, scale float64) *tensor.RawTensor {
	requireFloat32(name, x)

	shape := x.Shape()
	dim = normalizeDim(name, dim, len(shape))

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	size := shape[dim]

	result := tensor.MustNewRaw(ReducedShape(shape, dim, keepDim), tensor.Float32, cpu.device)
	in, out := x.AsFloat32(), result.AsFloat32()

	parallel.For(outer*inner, func(k int) {
		o, i := k/inner, k%inner
		var acc float64
		base := o*size*inner + i
		for j := 0; j < size; j++ {
			acc += float64(in[base+j*inner])
		}
		out[k] = float32(acc * scale)
	}, cpu.light)

	return result
}

// ReducedShape returns the shape of a reduction of shape along dim.
func ReducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			out = append(out, d)
		}
	}
	return out
}

func normalizeDim(op string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", op, dim, ndim))
	}
	return dim
}
