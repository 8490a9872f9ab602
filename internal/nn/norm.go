package nn

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/vae3d/internal/tensor"
)

// ErrUnknownNorm is returned when a normalization identifier has no factory.
var ErrUnknownNorm = errors.New("unknown normalization")

// NormConfig carries the hyperparameters shared by the built-in normalizations.
type NormConfig struct {
	Groups   int     // group count for group normalization
	Eps      float32 // added to the variance before the reciprocal square root
	Momentum float32 // running statistics update rate for batch normalization
}

// DefaultNormConfig returns Groups 8, Eps 1e-5, Momentum 0.1.
func DefaultNormConfig() NormConfig {
	return NormConfig{Groups: 8, Eps: 1e-5, Momentum: 0.1}
}

// Norm3D is a normalization over a [N, C, T, H, W] tensor. Forward returns a
// tensor of the same shape.
type Norm3D[B tensor.Backend] interface {
	Module[B]
	Trainable
}

// NormFactory builds a normalization for the given channel count.
type NormFactory[B tensor.Backend] func(channels int, cfg NormConfig, backend B) Norm3D[B]

// Built-in normalization identifiers and their aliases.
var builtinNorms = map[string]string{
	"batch":    "batch",
	"bn":       "batch",
	"instance": "instance",
	"in":       "instance",
	"group":    "group",
	"gn":       "group",
	"none":     "none",
	"identity": "none",
}

// IsBuiltinNorm reports whether name (case-insensitive) is a built-in
// normalization identifier or alias.
func IsBuiltinNorm(name string) bool {
	_, ok := builtinNorms[strings.ToLower(name)]
	return ok
}

// NormRegistry resolves normalization identifiers to factories.
//
// A registry is not safe for concurrent registration; populate it before
// building models.
type NormRegistry[B tensor.Backend] struct {
	factories map[string]NormFactory[B]
}

// NewNormRegistry returns a registry holding the built-in normalizations:
// batch (bn), instance (in), group (gn) and none (identity).
func NewNormRegistry[B tensor.Backend]() *NormRegistry[B] {
	r := &NormRegistry[B]{factories: make(map[string]NormFactory[B])}
	builtins := map[string]NormFactory[B]{
		"batch": func(c int, cfg NormConfig, b B) Norm3D[B] { return NewBatchNorm3D(c, cfg, b) },
		"instance": func(c int, cfg NormConfig, b B) Norm3D[B] {
			return NewInstanceNorm3D(c, cfg, b)
		},
		"group": func(c int, cfg NormConfig, b B) Norm3D[B] { return NewGroupNorm3D(c, cfg, b) },
		"none":  func(int, NormConfig, B) Norm3D[B] { return NewIdentityNorm[B]() },
	}
	for alias, name := range builtinNorms {
		r.factories[alias] = builtins[name]
	}
	return r
}

// Register adds or replaces the factory for name (case-insensitive).
func (r *NormRegistry[B]) Register(name string, factory NormFactory[B]) {
	r.factories[strings.ToLower(name)] = factory
}

// Has reports whether name resolves to a factory.
func (r *NormRegistry[B]) Has(name string) bool {
	_, ok := r.factories[strings.ToLower(name)]
	return ok
}

// Names returns the registered identifiers in sorted order.
func (r *NormRegistry[B]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build constructs the normalization registered under name.
func (r *NormRegistry[B]) Build(name string, channels int, cfg NormConfig, backend B) (Norm3D[B], error) {
	factory, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownNorm, name)
	}
	return factory(channels, cfg, backend), nil
}

// affine applies the per-channel scale and shift to a normalized [N,C,T,H,W] tensor.
func affine[B tensor.Backend](x *tensor.Tensor[float32, B], gamma, beta *Parameter[B], channels int) *tensor.Tensor[float32, B] {
	g := gamma.Tensor().Reshape(1, channels, 1, 1, 1)
	b := beta.Tensor().Reshape(1, channels, 1, 1, 1)
	return x.Mul(g).Add(b)
}

// meanOver averages x over dims, keeping every reduced axis with size 1.
func meanOver[B tensor.Backend](x *tensor.Tensor[float32, B], dims ...int) *tensor.Tensor[float32, B] {
	for _, d := range dims {
		x = x.MeanDim(d, true)
	}
	return x
}

func newAffineParams[B tensor.Backend](name string, channels int, backend B) (gamma, beta *Parameter[B]) {
	gamma = NewParameter(name+".weight", tensor.Ones[float32](tensor.Shape{channels}, backend))
	beta = NewParameter(name+".bias", tensor.Zeros[float32](tensor.Shape{channels}, backend))
	return gamma, beta
}

// BatchNorm3D normalizes each channel with statistics over (N, T, H, W).
//
// Formula: Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// In training mode batch statistics are used and the running estimates are
// updated with momentum; in inference mode the running estimates are used.
// New layers start in training mode.
type BatchNorm3D[B tensor.Backend] struct {
	channels int
	eps      float32
	momentum float32

	gamma *Parameter[B] // [channels], initialized to ones
	beta  *Parameter[B] // [channels], initialized to zeros

	runningMean []float32
	runningVar  []float32
	training    bool

	backend B
}

// NewBatchNorm3D creates a batch normalization layer over channels.
func NewBatchNorm3D[B tensor.Backend](channels int, cfg NormConfig, backend B) *BatchNorm3D[B] {
	gamma, beta := newAffineParams("batchnorm3d", channels, backend)
	runningVar := make([]float32, channels)
	for i := range runningVar {
		runningVar[i] = 1
	}
	return &BatchNorm3D[B]{
		channels:    channels,
		eps:         cfg.Eps,
		momentum:    cfg.Momentum,
		gamma:       gamma,
		beta:        beta,
		runningMean: make([]float32, channels),
		runningVar:  runningVar,
		training:    true,
		backend:     backend,
	}
}

// Forward normalizes x.
func (bn *BatchNorm3D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	checkVolume("batchnorm3d", shape, bn.channels)

	var centered, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean := meanOver(x, 0, 2, 3, 4)
		centered = x.Sub(mean)
		variance = meanOver(centered.Mul(centered), 0, 2, 3, 4)
		bn.updateRunning(mean.Data(), variance.Data(), shape.NumElements()/bn.channels)
	} else {
		stat := tensor.Shape{1, bn.channels, 1, 1, 1}
		mean, _ := tensor.FromSlice(bn.runningMean, stat, bn.backend)
		variance, _ = tensor.FromSlice(bn.runningVar, stat, bn.backend)
		centered = x.Sub(mean)
	}

	normalized := centered.Mul(variance.AddScalar(bn.eps).Rsqrt())
	return affine(normalized, bn.gamma, bn.beta, bn.channels)
}

// updateRunning blends batch statistics into the running estimates.
// The running variance uses the unbiased estimate.
func (bn *BatchNorm3D[B]) updateRunning(mean, variance []float32, count int) {
	correction := float32(1)
	if count > 1 {
		correction = float32(count) / float32(count-1)
	}
	m := bn.momentum
	for c := 0; c < bn.channels; c++ {
		bn.runningMean[c] = (1-m)*bn.runningMean[c] + m*mean[c]
		bn.runningVar[c] = (1-m)*bn.runningVar[c] + m*variance[c]*correction
	}
}

// Parameters returns [gamma, beta].
func (bn *BatchNorm3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// SetTraining switches between batch and running statistics.
func (bn *BatchNorm3D[B]) SetTraining(training bool) {
	bn.training = training
}

// RunningStats returns copies of the running mean and variance.
func (bn *BatchNorm3D[B]) RunningStats() (mean, variance []float32) {
	return slices.Clone(bn.runningMean), slices.Clone(bn.runningVar)
}

// InstanceNorm3D normalizes each (sample, channel) plane with statistics over
// (T, H, W), followed by a per-channel affine transform. It behaves the same
// in training and inference.
type InstanceNorm3D[B tensor.Backend] struct {
	channels int
	eps      float32
	gamma    *Parameter[B]
	beta     *Parameter[B]
}

// NewInstanceNorm3D creates an instance normalization layer over channels.
func NewInstanceNorm3D[B tensor.Backend](channels int, cfg NormConfig, backend B) *InstanceNorm3D[B] {
	gamma, beta := newAffineParams("instancenorm3d", channels, backend)
	return &InstanceNorm3D[B]{channels: channels, eps: cfg.Eps, gamma: gamma, beta: beta}
}

// Forward normalizes x.
func (in *InstanceNorm3D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkVolume("instancenorm3d", x.Shape(), in.channels)

	centered := x.Sub(meanOver(x, 2, 3, 4))
	variance := meanOver(centered.Mul(centered), 2, 3, 4)
	normalized := centered.Mul(variance.AddScalar(in.eps).Rsqrt())
	return affine(normalized, in.gamma, in.beta, in.channels)
}

// Parameters returns [gamma, beta].
func (in *InstanceNorm3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{in.gamma, in.beta}
}

// SetTraining is a no-op.
func (in *InstanceNorm3D[B]) SetTraining(bool) {}

// GroupNorm3D splits channels into groups and normalizes each (sample, group)
// with statistics over the group's channels and (T, H, W).
type GroupNorm3D[B tensor.Backend] struct {
	channels int
	groups   int
	eps      float32
	gamma    *Parameter[B]
	beta     *Parameter[B]
}

// NewGroupNorm3D creates a group normalization layer over channels.
//
// cfg.Groups is clamped to the largest divisor of channels not above it, so
// any channel count is accepted.
func NewGroupNorm3D[B tensor.Backend](channels int, cfg NormConfig, backend B) *GroupNorm3D[B] {
	gamma, beta := newAffineParams("groupnorm3d", channels, backend)
	return &GroupNorm3D[B]{
		channels: channels,
		groups:   EffectiveGroups(channels, cfg.Groups),
		eps:      cfg.Eps,
		gamma:    gamma,
		beta:     beta,
	}
}

// EffectiveGroups returns the largest divisor of channels that is <= groups,
// and at least 1.
func EffectiveGroups(channels, groups int) int {
	g := min(max(groups, 1), channels)
	for channels%g != 0 {
		g--
	}
	return g
}

// Forward normalizes x.
func (gn *GroupNorm3D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	checkVolume("groupnorm3d", shape, gn.channels)

	n := shape[0]
	grouped := x.Reshape(n, gn.groups, shape.NumElements()/(n*gn.groups))
	centered := grouped.Sub(grouped.MeanDim(2, true))
	variance := centered.Mul(centered).MeanDim(2, true)
	normalized := centered.Mul(variance.AddScalar(gn.eps).Rsqrt()).Reshape(shape...)
	return affine(normalized, gn.gamma, gn.beta, gn.channels)
}

// Parameters returns [gamma, beta].
func (gn *GroupNorm3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{gn.gamma, gn.beta}
}

// Groups returns the effective group count.
func (gn *GroupNorm3D[B]) Groups() int {
	return gn.groups
}

// SetTraining is a no-op.
func (gn *GroupNorm3D[B]) SetTraining(bool) {}

// IdentityNorm passes its input through unchanged.
type IdentityNorm[B tensor.Backend] struct{}

// NewIdentityNorm creates an identity normalization.
func NewIdentityNorm[B tensor.Backend]() *IdentityNorm[B] {
	return &IdentityNorm[B]{}
}

// Forward returns x.
func (IdentityNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x
}

// Parameters returns nil.
func (IdentityNorm[B]) Parameters() []*Parameter[B] { return nil }

// SetTraining is a no-op.
func (IdentityNorm[B]) SetTraining(bool) {}
