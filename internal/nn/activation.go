package nn

import (
	"github.com/born-ml/vae3d/internal/tensor"
)

// LeakyReLU is a leaky rectified linear unit activation module.
//
// Applies the element-wise function:
//
//	f(x) = x          if x > 0
//	f(x) = slope * x  otherwise
//
// Example:
//
//	act := nn.NewLeakyReLU[B](0.2)
//	output := act.Forward(input)
type LeakyReLU[B tensor.Backend] struct {
	slope float32
}

// NewLeakyReLU creates a new LeakyReLU activation module.
func NewLeakyReLU[B tensor.Backend](slope float32) *LeakyReLU[B] {
	return &LeakyReLU[B]{slope: slope}
}

// Forward applies the activation.
func (l *LeakyReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.LeakyReLU(l.slope)
}

// Parameters returns an empty slice (LeakyReLU has no trainable parameters).
func (l *LeakyReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Slope returns the negative-side slope.
func (l *LeakyReLU[B]) Slope() float32 {
	return l.slope
}
