package vae

import (
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// Decoder maps a latent sample back to a volume with OutputChannels channels.
type Decoder[B tensor.Backend] struct {
	blocks *nn.Sequential[B]
}

func newDecoder[B tensor.Backend](plan *Plan, norm normBuilder[B], init nn.Init, rng *rand.Rand, backend B) (*Decoder[B], error) {
	blocks := nn.NewSequential[B]()
	for _, stage := range plan.Decoder {
		n, err := norm(stage.InChannels)
		if err != nil {
			return nil, err
		}
		blocks.Add(newUpBlock(stage, n, init, rng, backend))
	}
	return &Decoder[B]{blocks: blocks}, nil
}

// Forward decodes z.
func (d *Decoder[B]) Forward(z *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return d.blocks.Forward(z)
}

// Blocks returns the residual block sequence.
func (d *Decoder[B]) Blocks() *nn.Sequential[B] {
	return d.blocks
}

// Parameters returns every decoder parameter.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	return d.blocks.Parameters()
}

// SetTraining switches every normalization in the decoder.
func (d *Decoder[B]) SetTraining(training bool) {
	d.blocks.SetTraining(training)
}
