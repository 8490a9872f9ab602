package vae

import (
	"fmt"
	"math"

	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

// LossResult holds the three scalar loss tensors of one evaluation.
type LossResult[B tensor.Backend] struct {
	Total          *tensor.Tensor[float32, B] // KLWeight*KL + Reconstruction
	Reconstruction *tensor.Tensor[float32, B] // mean |reconstruction - target|
	KL             *tensor.Tensor[float32, B] // batch-mean KL divergence to N(0, 1)
}

// Values returns the three terms as float64.
func (r LossResult[B]) Values() (total, reconstruction, kl float64) {
	return float64(r.Total.Item()), float64(r.Reconstruction.Item()), float64(r.KL.Item())
}

// CheckFinite returns an error matching ErrNumericAnomaly if any term is
// NaN or infinite. Loss evaluation never calls it; it is for training loops
// deciding whether to skip a batch.
func (r LossResult[B]) CheckFinite() error {
	total, recon, kl := r.Values()
	for _, term := range []struct {
		name  string
		value float64
	}{{"kl", kl}, {"reconstruction", recon}, {"total", total}} {
		if math.IsNaN(term.value) || math.IsInf(term.value, 0) {
			return fmt.Errorf("%w: %s loss is %v", ErrNumericAnomaly, term.name, term.value)
		}
	}
	return nil
}

// Loss combines a weighted KL divergence with an L1 reconstruction error.
//
//	KL    = -0.5 * mean_batch(sum_{C,T,H,W}(1 + logvar - mean² - exp(logvar)))
//	recon = mean(|reconstruction - target|)
//	total = w_kl * KL + recon
//
// The KL weight is a constant; warm-up schedules call SetKLWeight between steps.
type Loss[B tensor.Backend] struct {
	klWeight float32
	kl       *nn.GaussianKL[B]
	l1       *nn.L1Loss[B]
}

// NewLoss creates the loss for cfg.KLWeight on the backend type of backend.
// It fails with a *ConfigError if the weight is negative or not finite.
func NewLoss[B tensor.Backend](cfg config.Config, _ B) (*Loss[B], error) {
	if err := checkKLWeight(cfg.KLWeight); err != nil {
		return nil, err
	}
	return &Loss[B]{
		klWeight: float32(cfg.KLWeight),
		kl:       nn.NewGaussianKL[B](),
		l1:       nn.NewL1Loss[B](),
	}, nil
}

func checkKLWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return &ConfigError{Key: "w_kl", Reason: fmt.Sprintf("must be a finite non-negative number, got %v", w)}
	}
	return nil
}

// Forward evaluates the loss. All three results are scalar tensors and are
// recorded on the gradient tape when the backend records.
//
// target broadcasts against reconstruction: a single-channel volume is
// scored against each of the OutputChannels reconstruction channels.
//
// Panics with a *ShapeError if target and reconstruction cannot be
// broadcast, or if mean and logvar differ in shape.
func (l *Loss[B]) Forward(target, reconstruction, mean, logvar *tensor.Tensor[float32, B]) LossResult[B] {
	kl := l.kl.Forward(mean, logvar)
	recon := l.l1.Forward(reconstruction, target)
	return LossResult[B]{
		Total:          l.combine(kl, recon),
		Reconstruction: recon,
		KL:             kl,
	}
}

func (l *Loss[B]) combine(kl, recon *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return kl.MulScalar(l.klWeight).Add(recon)
}

// KLWeight returns the current KL weight.
func (l *Loss[B]) KLWeight() float32 {
	return l.klWeight
}

// SetKLWeight replaces the KL weight. It returns a *ConfigError and keeps
// the old weight if w is negative or not finite.
func (l *Loss[B]) SetKLWeight(w float64) error {
	if err := checkKLWeight(w); err != nil {
		return err
	}
	l.klWeight = float32(w)
	return nil
}
