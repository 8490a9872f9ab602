package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
//
// Volumes use the 5-axis layout [batch, channel, temporal, height, width].
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Volume returns the temporal, height and width extents of a 5-D shape.
// Panics if the shape is not 5-D.
func (s Shape) Volume() Dims3 {
	if len(s) != 5 {
		panic(fmt.Sprintf("expected 5-D shape [N,C,T,H,W], got %v", s))
	}
	return Dims3{s[2], s[3], s[4]}
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are aligned from the right; two dimensions are compatible when they are
// equal or one of them is 1. Missing leading dimensions are treated as 1.
//
// Returns the broadcasted shape, a flag indicating if broadcasting is needed, and an
// error if the shapes are incompatible.
//
//	(2, 4, 1, 1, 1) + (2, 4, 3, 8, 8) → (2, 4, 3, 8, 8), true, nil
//	(3, 4) + (3, 5)                    → nil, false, error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	result := make(Shape, n)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < n; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[n-1-i] = aDim
		case aDim == 1:
			result[n-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[n-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, n-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// Dims3 holds one value per volumetric axis: temporal, height, width.
// It is used for convolution strides, paddings and output paddings.
type Dims3 [3]int

// Uniform returns a Dims3 with the same value on every axis.
func Uniform(v int) Dims3 {
	return Dims3{v, v, v}
}

// T returns the temporal component.
func (d Dims3) T() int { return d[0] }

// H returns the height component.
func (d Dims3) H() int { return d[1] }

// W returns the width component.
func (d Dims3) W() int { return d[2] }

// String renders the triple as (t, h, w).
func (d Dims3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", d[0], d[1], d[2])
}
