package vae

import (
	"fmt"

	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/tensor"
)

// OutputChannels is the channel count of every reconstruction.
const OutputChannels = 3

// Fixed transition strides, indexed by group position. Entry 0 belongs to
// the prologue transition, which always uses (1, 2, 2).
var (
	stridesR = [...]int{2, 1, 2, 2, 1, 2}
	stridesV = [...]int{1, 2, 1, 1, 2, 1}
)

// Stage describes one residual block.
type Stage struct {
	InChannels  int
	OutChannels int
	Stride      tensor.Dims3 // (temporal, spatial, spatial)
}

// String returns "in->out stride (t, h, w)".
func (s Stage) String() string {
	return fmt.Sprintf("%d->%d stride %v", s.InChannels, s.OutChannels, s.Stride)
}

// Transition reports whether the stage changes resolution.
func (s Stage) Transition() bool {
	return s.Stride != tensor.Uniform(1)
}

// Plan is the ordered list of encoder and decoder stages built from a
// configuration. Encoder and decoder assembly both consume it, so the
// decoder's transition strides are always the encoder's in reverse order.
type Plan struct {
	Encoder []Stage
	Decoder []Stage
	Latent  int // channel count of mean and log-variance
}

func stride(v, r int) tensor.Dims3 {
	return tensor.Dims3{v, r, r}
}

// NewPlan builds the stage plan for channels. in is the input channel count.
//
// Encoder: in->c0, c0->c0, c0->c1 at (1, 2, 2); then per remaining entry
// two stride-1 blocks and one transition block. Decoder: per group, walking
// the channels back down, a transition block mirroring the matching encoder
// transition, a stride-1 block and a channel-reducing block; then a (1, 2, 2)
// block, a stride-1 block and a block down to OutputChannels.
//
// Decoder transitions reuse the stride of the encoder transition they undo,
// so every channel count from MinStages to MaxStages round-trips an extent
// accepted by RoundTrips. Indexing the stride tables from their end instead
// gives the same schedule only for MaxStages channels; for 3 to 6 channels
// this plan differs from that schedule.
func NewPlan(in int, channels []int) (*Plan, error) {
	if in <= 0 {
		return nil, &config.ConfigError{Key: "in_channels", Reason: fmt.Sprintf("must be positive, got %d", in)}
	}
	if n := len(channels); n < config.MinStages || n > config.MaxStages {
		return nil, &config.ConfigError{Key: "channels",
			Reason: fmt.Sprintf("need between %d and %d entries, got %d", config.MinStages, config.MaxStages, n)}
	}
	for i, c := range channels {
		if c <= 0 {
			return nil, &config.ConfigError{Key: "channels", Reason: fmt.Sprintf("entry %d must be positive, got %d", i, c)}
		}
	}

	one := tensor.Uniform(1)
	c0, c1 := channels[0], channels[1]
	p := &Plan{Latent: channels[len(channels)-1]}

	p.Encoder = append(p.Encoder,
		Stage{in, c0, one},
		Stage{c0, c0, one},
		Stage{c0, c1, stride(stridesV[0], stridesR[0])},
	)
	cur := c1
	for i, out := range channels[2:] {
		p.Encoder = append(p.Encoder,
			Stage{cur, cur, one},
			Stage{cur, cur, one},
			Stage{cur, out, stride(stridesV[i+1], stridesR[i+1])},
		)
		cur = out
	}

	// Transitions into channels[j] (j >= 2) used stride index j-1; undo them
	// from the deepest one back.
	for j := len(channels) - 1; j >= 2; j-- {
		next := channels[j-1]
		p.Decoder = append(p.Decoder,
			Stage{cur, cur, stride(stridesV[j-1], stridesR[j-1])},
			Stage{cur, cur, one},
			Stage{cur, next, one},
		)
		cur = next
	}
	p.Decoder = append(p.Decoder,
		Stage{cur, cur, stride(stridesV[0], stridesR[0])},
		Stage{cur, cur, one},
		Stage{cur, OutputChannels, one},
	)

	return p, nil
}

// downExtent is the output extent of a kernel 3, padding 1 convolution.
func downExtent(in, s int) int {
	return (in-1)/s + 1
}

// upExtent is the output extent of the matching transposed convolution.
func upExtent(in, s, outputPadding int) int {
	return (in-1)*s - 2 + 3 + outputPadding
}

// LatentShape returns the (T, H, W) extent of mean and log-variance for an
// input of extent in.
func (p *Plan) LatentShape(in tensor.Dims3) tensor.Dims3 {
	out := in
	for _, st := range p.Encoder {
		for a := range out {
			out[a] = downExtent(out[a], st.Stride[a])
		}
	}
	return out
}

// DecodedShape returns the extent the decoder produces from a latent of
// extent z.
func (p *Plan) DecodedShape(z tensor.Dims3) tensor.Dims3 {
	out := z
	for _, st := range p.Decoder {
		op := upOutputPadding(st.Stride)
		for a := range out {
			out[a] = upExtent(out[a], st.Stride[a], op[a])
		}
	}
	return out
}

// OutputShape returns the reconstruction extent for an input of extent in.
func (p *Plan) OutputShape(in tensor.Dims3) tensor.Dims3 {
	return p.DecodedShape(p.LatentShape(in))
}

// RoundTrips reports whether reconstructions of an input of extent in have
// the same extent. Every temporal stride-2 transition needs an odd temporal
// extent, and every spatial stride-2 transition an even one.
func (p *Plan) RoundTrips(in tensor.Dims3) bool {
	return p.OutputShape(in) == in
}

// upOutputPadding is (0, sr-1, sr-1) for a stride (sv, sr, sr).
func upOutputPadding(s tensor.Dims3) tensor.Dims3 {
	return tensor.Dims3{0, s[1] - 1, s[2] - 1}
}
