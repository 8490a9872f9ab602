// Package vae implements a 3D convolutional variational autoencoder for
// volumetric data laid out as [batch, channel, temporal, height, width],
// together with its KL + L1 training loss.
//
// The architecture is fixed; a config.Config chooses the channel count of
// every stage, the normalization and the KL weight. A Plan derived from the
// configuration lists every residual block of the encoder and decoder.
package vae

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// normBuilder builds the normalization for a block with the given input
// channel count.
type normBuilder[B tensor.Backend] func(channels int) (nn.Norm3D[B], error)

// Option configures New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	rng      *rand.Rand
	registry any
}

// WithLogger sets the logger used to report parameter counts at construction.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRand sets the random source used for weight initialization and for
// every reparameterization draw. Without it the model seeds a source from
// cfg.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithNormRegistry resolves cfg.Norm through registry instead of the
// built-in normalizations. The registry's backend type must match New's.
func WithNormRegistry[B tensor.Backend](registry *nn.NormRegistry[B]) Option {
	return func(o *options) { o.registry = registry }
}

// ParameterCounts holds learnable scalar counts per model part.
type ParameterCounts struct {
	Encoder int // residual blocks of the encoder
	Heads   int // mean and log-variance convolutions
	Decoder int
}

// Total returns the sum of all counts.
func (c ParameterCounts) Total() int {
	return c.Encoder + c.Heads + c.Decoder
}

// Model is a 3D convolutional VAE.
//
// Calls are synchronous. A Model is not safe for concurrent use: forward
// passes draw from a shared random source and batch normalization updates
// running statistics while training.
type Model[B tensor.Backend] struct {
	cfg     config.Config
	plan    *Plan
	encoder *Encoder[B]
	decoder *Decoder[B]
	rng     *rand.Rand
	backend B
	logger  *slog.Logger
}

// New builds a model from cfg on backend. It fails with a *ConfigError if
// cfg is invalid or names an unknown normalization.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := vae.New(cfg, backend, vae.WithRand(tensor.NewRand(42)))
//	recon, mean, logvar := model.Forward(x)
func New[B tensor.Backend](cfg config.Config, backend B, opts ...Option) (*Model[B], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	registry := nn.NewNormRegistry[B]()
	if o.registry != nil {
		r, ok := o.registry.(*nn.NormRegistry[B])
		if !ok {
			return nil, fmt.Errorf("%w: normalization registry is for a different backend", ErrInvalidConfig)
		}
		registry = r
	}

	if err := cfg.ValidateWith(registry.Has); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	initFn, ok := nn.InitByName(cfg.Init)
	if !ok {
		return nil, &ConfigError{Key: "init", Reason: fmt.Sprintf("unknown initializer %q", cfg.Init)}
	}

	plan, err := NewPlan(cfg.InChannels, cfg.Channels)
	if err != nil {
		return nil, err
	}

	rng := o.rng
	if rng == nil {
		rng = tensor.NewRand(cfg.Seed)
	}

	normCfg := cfg.NormConfig()
	norm := func(channels int) (nn.Norm3D[B], error) {
		n, err := registry.Build(cfg.Norm, channels, normCfg, backend)
		if err != nil {
			return nil, &ConfigError{Key: "norm", Reason: err.Error()}
		}
		return n, nil
	}

	encoder, err := newEncoder(plan, norm, initFn, rng, backend)
	if err != nil {
		return nil, err
	}
	decoder, err := newDecoder(plan, norm, initFn, rng, backend)
	if err != nil {
		return nil, err
	}

	m := &Model[B]{
		cfg:     cfg,
		plan:    plan,
		encoder: encoder,
		decoder: decoder,
		rng:     rng,
		backend: backend,
		logger:  o.logger,
	}

	counts := m.ParameterCounts()
	m.logger.Info("built vae",
		"backend", backend.Name(),
		"norm", cfg.Norm,
		"channels", cfg.Channels,
		"encoder_parameters", counts.Encoder,
		"head_parameters", counts.Heads,
		"decoder_parameters", counts.Decoder)

	return m, nil
}

// Forward runs encode, sample and decode on x [N, in_channels, T, H, W].
//
// Panics with a *ShapeError at the first layer that cannot accept x; use
// CheckInput to get an error instead.
func (m *Model[B]) Forward(x *tensor.Tensor[float32, B]) (recon, mean, logvar *tensor.Tensor[float32, B]) {
	z, mean, logvar := m.Encode(x)
	return m.Decode(z), mean, logvar
}

// Encode returns a latent sample together with the distribution it was
// drawn from. Encoding always samples.
func (m *Model[B]) Encode(x *tensor.Tensor[float32, B]) (z, mean, logvar *tensor.Tensor[float32, B]) {
	mean, logvar = m.encoder.Forward(x)
	return m.Reparameterize(mean, logvar), mean, logvar
}

// Decode maps a latent sample to a reconstruction with OutputChannels channels.
func (m *Model[B]) Decode(z *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.decoder.Forward(z)
}

// Reparameterize draws z = mean + exp(0.5*logvar) * eps with eps ~ N(0, 1),
// one draw per element from the model's random source. z is differentiable
// with respect to mean and logvar.
//
// Panics with a *ShapeError if the shapes differ.
func (m *Model[B]) Reparameterize(mean, logvar *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !mean.Shape().Equal(logvar.Shape()) {
		panic(&ShapeError{Op: "reparameterize", Shape: mean.Shape(),
			Reason: fmt.Sprintf("log-variance has shape %v", logvar.Shape())})
	}
	eps := tensor.Randn[float32](mean.Shape(), m.rng, m.backend)
	std := logvar.MulScalar(0.5).Exp()
	return mean.Add(std.Mul(eps))
}

// Interpolate blends two latents: a + alpha*(b - a). alpha 0.5 gives the
// midpoint.
//
// Panics with a *ShapeError if the shapes differ.
func (m *Model[B]) Interpolate(a, b *tensor.Tensor[float32, B], alpha float32) *tensor.Tensor[float32, B] {
	if !a.Shape().Equal(b.Shape()) {
		panic(&ShapeError{Op: "interpolate", Shape: a.Shape(), Reason: fmt.Sprintf("other latent has shape %v", b.Shape())})
	}
	return a.Add(b.Sub(a).MulScalar(alpha))
}

// CheckInput returns a *ShapeError if a tensor of the given shape cannot be
// passed to Forward.
func (m *Model[B]) CheckInput(shape tensor.Shape) error {
	if len(shape) != 5 {
		return &ShapeError{Op: "vae", Shape: shape, Reason: "expected 5D input [N,C,T,H,W]"}
	}
	if shape[1] != m.cfg.InChannels {
		return &ShapeError{Op: "vae", Shape: shape, Reason: fmt.Sprintf("expected %d channels", m.cfg.InChannels)}
	}
	for _, d := range shape {
		if d <= 0 {
			return &ShapeError{Op: "vae", Shape: shape, Reason: "every extent must be positive"}
		}
	}
	return nil
}

// Parameters returns encoder, head and decoder parameters in that order.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return append(m.encoder.Parameters(), m.decoder.Parameters()...)
}

// ParameterCounts returns the learnable scalar count of each model part.
func (m *Model[B]) ParameterCounts() ParameterCounts {
	return ParameterCounts{
		Encoder: countParams(m.encoder.BlockParameters()),
		Heads:   countParams(m.encoder.HeadParameters()),
		Decoder: countParams(m.decoder.Parameters()),
	}
}

func countParams[B tensor.Backend](params []*nn.Parameter[B]) int {
	total := 0
	for _, p := range params {
		total += p.Tensor().NumElements()
	}
	return total
}

// Train switches normalizations to training mode. Models start in training mode.
func (m *Model[B]) Train() {
	m.encoder.SetTraining(true)
	m.decoder.SetTraining(true)
}

// Eval switches normalizations to inference mode.
func (m *Model[B]) Eval() {
	m.encoder.SetTraining(false)
	m.decoder.SetTraining(false)
}

// Config returns a copy of the model's configuration.
func (m *Model[B]) Config() config.Config {
	return m.cfg.Clone()
}

// Plan returns the stage plan the model was built from.
func (m *Model[B]) Plan() *Plan {
	return m.plan
}

// Encoder returns the encoder.
func (m *Model[B]) Encoder() *Encoder[B] {
	return m.encoder
}

// Decoder returns the decoder.
func (m *Model[B]) Decoder() *Decoder[B] {
	return m.decoder
}

// Backend returns the backend the model computes on.
func (m *Model[B]) Backend() B {
	return m.backend
}
