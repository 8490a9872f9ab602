package vae

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// activationSlope is the LeakyReLU negative slope on the left path.
const activationSlope = 0.2

var (
	blockKernel  = tensor.Uniform(3)
	blockPadding = tensor.Uniform(1)
)

// Block is a residual down- or upsampling block:
//
//	x     = norm(x)
//	left  = LeakyReLU(conv_l(x), 0.2)
//	right = conv_r(x)
//	out   = left + right
//
// conv_l and conv_r share geometry but not parameters. Both paths always
// run, even when the stage keeps channels and resolution.
type Block[B tensor.Backend] struct {
	stage Stage
	up    bool
	norm  nn.Norm3D[B]
	left  *nn.Sequential[B]
	right nn.Module[B]
}

// newDownBlock builds a block whose convolutions stride by stage.Stride.
func newDownBlock[B tensor.Backend](stage Stage, norm nn.Norm3D[B], init nn.Init, rng *rand.Rand, backend B) *Block[B] {
	conv := func() nn.Module[B] {
		return nn.NewConv3D(stage.InChannels, stage.OutChannels, blockKernel, stage.Stride, blockPadding, init, rng, backend)
	}
	return newBlock(stage, false, norm, conv)
}

// newUpBlock builds a block of transposed convolutions that undoes a
// downsampling block of the same stride. Output padding is (0, sr-1, sr-1).
func newUpBlock[B tensor.Backend](stage Stage, norm nn.Norm3D[B], init nn.Init, rng *rand.Rand, backend B) *Block[B] {
	conv := func() nn.Module[B] {
		return nn.NewConvTranspose3D(stage.InChannels, stage.OutChannels, blockKernel, stage.Stride, blockPadding,
			upOutputPadding(stage.Stride), init, rng, backend)
	}
	return newBlock(stage, true, norm, conv)
}

func newBlock[B tensor.Backend](stage Stage, up bool, norm nn.Norm3D[B], conv func() nn.Module[B]) *Block[B] {
	left := nn.NewSequential[B](conv(), nn.NewLeakyReLU[B](activationSlope))
	return &Block[B]{
		stage: stage,
		up:    up,
		norm:  norm,
		left:  left,
		right: conv(),
	}
}

// Forward applies the block to x [N, in, T, H, W].
func (b *Block[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = b.norm.Forward(x)
	return b.left.Forward(x).Add(b.right.Forward(x))
}

// Parameters returns the normalization, left and right parameters in that order.
func (b *Block[B]) Parameters() []*nn.Parameter[B] {
	params := append([]*nn.Parameter[B]{}, b.norm.Parameters()...)
	params = append(params, b.left.Parameters()...)
	return append(params, b.right.Parameters()...)
}

// SetTraining switches the block's normalization.
func (b *Block[B]) SetTraining(training bool) {
	b.norm.SetTraining(training)
}

// Stage returns the stage the block was built from.
func (b *Block[B]) Stage() Stage {
	return b.stage
}

// String returns a string representation of the block.
func (b *Block[B]) String() string {
	kind := "Down"
	if b.up {
		kind = "Up"
	}
	return fmt.Sprintf("ResidualBlock%s(%v)", kind, b.stage)
}
