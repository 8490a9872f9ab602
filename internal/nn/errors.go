package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/vae3d/internal/tensor"
)

// ErrShape is matched by every *ShapeError.
var ErrShape = errors.New("incompatible tensor shape")

// ShapeError reports a tensor whose rank, channel count or extent a layer
// cannot accept. Layers panic with a *ShapeError; callers that want an error
// value validate up front.
type ShapeError struct {
	Op     string       // layer or operation that rejected the tensor
	Shape  tensor.Shape // offending shape
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s (got shape %v)", e.Op, e.Reason, e.Shape)
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// checkVolume panics with a *ShapeError unless x is [N, channels, T, H, W]
// with every extent positive.
func checkVolume(op string, x tensor.Shape, channels int) {
	if len(x) != 5 {
		panic(&ShapeError{Op: op, Shape: x, Reason: "expected 5D input [N,C,T,H,W]"})
	}
	if x[1] != channels {
		panic(&ShapeError{Op: op, Shape: x, Reason: fmt.Sprintf("expected %d channels", channels)})
	}
	for _, d := range x {
		if d <= 0 {
			panic(&ShapeError{Op: op, Shape: x, Reason: "every extent must be positive"})
		}
	}
}
