package vae

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/backend/cpu"
	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/tensor"
)

func TestLoss_CombineWorkedExample(t *testing.T) {
	backend := cpu.New()
	cfg := config.Default()
	cfg.KLWeight = 0.5
	loss, err := NewLoss(cfg, backend)
	require.NoError(t, err)

	kl := tensor.Full[float32](tensor.Shape{}, 4, backend)
	recon := tensor.Full[float32](tensor.Shape{}, 1, backend)

	assert.InDelta(t, 3.0, loss.combine(kl, recon).Item(), 1e-7)
}
