package nn

import (
	"fmt"

	"github.com/born-ml/vae3d/internal/tensor"
)

// L1Loss computes Mean Absolute Error loss.
//
// Loss = mean(|predictions - targets|)
//
// Example:
//
//	l1 := nn.NewL1Loss[B]()
//	loss := l1.Forward(reconstruction, target) // scalar, shape []
type L1Loss[B tensor.Backend] struct{}

// NewL1Loss creates a new L1 loss function.
func NewL1Loss[B tensor.Backend]() *L1Loss[B] {
	return &L1Loss[B]{}
}

// Forward computes the L1 loss as a scalar tensor of shape [].
//
// targets broadcast against predictions, so a single-channel target is
// compared with every channel of a multi-channel reconstruction. The mean is
// taken over the broadcast shape.
//
// Panics with a *ShapeError if the shapes cannot be broadcast.
func (l *L1Loss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if _, _, err := tensor.BroadcastShapes(predictions.Shape(), targets.Shape()); err != nil {
		panic(&ShapeError{Op: "l1loss", Shape: predictions.Shape(), Reason: fmt.Sprintf("targets have shape %v", targets.Shape())})
	}
	return predictions.Sub(targets).Abs().Mean()
}

// GaussianKL computes the closed-form KL divergence between the diagonal
// Gaussian N(mean, exp(logvar)) and the standard normal N(0, 1).
//
// Per element: -0.5 * (1 + logvar - mean² - exp(logvar)). The elementwise
// terms are summed over every non-batch axis and averaged over the batch.
type GaussianKL[B tensor.Backend] struct{}

// NewGaussianKL creates a new KL divergence term.
func NewGaussianKL[B tensor.Backend]() *GaussianKL[B] {
	return &GaussianKL[B]{}
}

// Forward returns the batch-mean KL divergence as a scalar tensor of shape [].
//
// Panics with a *ShapeError if mean and logvar shapes differ or are not batched.
func (k *GaussianKL[B]) Forward(mean, logvar *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := mean.Shape()
	if !shape.Equal(logvar.Shape()) {
		panic(&ShapeError{Op: "gaussiankl", Shape: shape, Reason: fmt.Sprintf("log-variance has shape %v", logvar.Shape())})
	}
	if len(shape) == 0 || shape[0] <= 0 {
		panic(&ShapeError{Op: "gaussiankl", Shape: shape, Reason: "expected a leading batch axis"})
	}

	term := logvar.AddScalar(1).Sub(mean.Mul(mean)).Sub(logvar.Exp())
	return term.Sum().MulScalar(-0.5 / float32(shape[0]))
}
