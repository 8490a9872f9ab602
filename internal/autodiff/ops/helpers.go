package ops

import (
	"fmt"

	"github.com/born-ml/vae3d/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: x[2,8,1,4,4] + bias[1,8,1,1,1] -> y[2,8,1,4,4]
//	Backward: grad_y[2,8,1,4,4] -> grad_bias[1,8,1,1,1] (sum over dims 0, 2, 3, 4)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		return grad
	}

	// Scalar target: everything collapses.
	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// NumPy broadcasting aligns shapes from the right, so leading axes the
	// target does not have are summed away first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	shape := result.Shape()
	for i := range targetShape {
		if targetShape[i] == 1 && shape[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// expandTo broadcasts grad back over the axes a reduction removed.
// grad must be broadcast-compatible with shape.
func expandTo(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	zeros := tensor.MustNewRaw(shape, grad.DType(), backend.Device())
	return backend.Add(zeros, grad)
}

// keepDimShape returns shape with axis dim set to 1.
func keepDimShape(shape tensor.Shape, dim int) tensor.Shape {
	out := shape.Clone()
	out[normalizeDim(dim, len(shape))] = 1
	return out
}

func normalizeDim(dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("ops: dimension %d out of range for %dD tensor", dim, ndim))
	}
	return dim
}

// mapElements returns a new tensor holding f applied to every element of x.
// It is used for derivative masks that have no backend kernel of their own.
func mapElements(x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	out := tensor.MustNewRaw(x.Shape(), x.DType(), x.Device())
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), out.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), out.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("ops: unsupported dtype %s", x.DType()))
	}
	return out
}
