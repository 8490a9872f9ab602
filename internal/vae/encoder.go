package vae

import (
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// Encoder maps a volume to the parameters of a per-voxel Gaussian latent.
type Encoder[B tensor.Backend] struct {
	blocks *nn.Sequential[B]
	mean   *nn.Conv3D[B]
	logvar *nn.Conv3D[B]
}

func newEncoder[B tensor.Backend](plan *Plan, norm normBuilder[B], init nn.Init, rng *rand.Rand, backend B) (*Encoder[B], error) {
	blocks := nn.NewSequential[B]()
	for _, stage := range plan.Encoder {
		n, err := norm(stage.InChannels)
		if err != nil {
			return nil, err
		}
		blocks.Add(newDownBlock(stage, n, init, rng, backend))
	}

	c := plan.Latent
	head := func() *nn.Conv3D[B] {
		return nn.NewConv3D(c, c, blockKernel, tensor.Uniform(1), blockPadding, init, rng, backend)
	}
	return &Encoder[B]{blocks: blocks, mean: head(), logvar: head()}, nil
}

// Forward returns mean and log-variance for x. Both have Plan.Latent
// channels and the extent given by Plan.LatentShape.
func (e *Encoder[B]) Forward(x *tensor.Tensor[float32, B]) (mean, logvar *tensor.Tensor[float32, B]) {
	h := e.blocks.Forward(x)
	return e.mean.Forward(h), e.logvar.Forward(h)
}

// Blocks returns the residual block sequence.
func (e *Encoder[B]) Blocks() *nn.Sequential[B] {
	return e.blocks
}

// BlockParameters returns the parameters of the residual blocks only.
func (e *Encoder[B]) BlockParameters() []*nn.Parameter[B] {
	return e.blocks.Parameters()
}

// HeadParameters returns the parameters of the mean and log-variance heads.
func (e *Encoder[B]) HeadParameters() []*nn.Parameter[B] {
	return append(e.mean.Parameters(), e.logvar.Parameters()...)
}

// Parameters returns block then head parameters.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	return append(e.BlockParameters(), e.HeadParameters()...)
}

// SetTraining switches every normalization in the encoder.
func (e *Encoder[B]) SetTraining(training bool) {
	e.blocks.SetTraining(training)
}
