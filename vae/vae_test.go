// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vae_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/autodiff"
	"github.com/born-ml/vae3d/backend/cpu"
	"github.com/born-ml/vae3d/nn"
	"github.com/born-ml/vae3d/optim"
	"github.com/born-ml/vae3d/tensor"
	"github.com/born-ml/vae3d/vae"
)

const doc = `
in_channels: 1
channels: [2, 2, 2]
norm: instance
w_kl: 0.01
seed: 3
`

func TestPublicTrainingStep(t *testing.T) {
	cfg, err := vae.ParseConfig([]byte(doc))
	require.NoError(t, err)

	backend := autodiff.New(cpu.New())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	model, err := vae.New(cfg, backend, vae.WithLogger(logger), vae.WithRand(tensor.NewRand(cfg.Seed)))
	require.NoError(t, err)
	criterion, err := vae.NewLoss(cfg, backend)
	require.NoError(t, err)

	x := tensor.Randn[float32](tensor.Shape{1, 1, 1, 4, 4}, tensor.NewRand(4), backend)
	require.NoError(t, model.CheckInput(x.Shape()))

	params := model.Parameters()
	before := append([]float32(nil), params[0].Tensor().Data()...)

	backend.Tape().StartRecording()
	recon, mean, logvar := model.Forward(x)
	loss := criterion.Forward(x, recon, mean, logvar)
	grads := autodiff.Backward(loss.Total, backend)
	backend.Tape().StopRecording()

	require.NoError(t, loss.CheckFinite())
	assert.Equal(t, x.Shape()[2:], recon.Shape()[2:])
	assert.Equal(t, vae.OutputChannels, recon.Shape()[1])

	optimizer := optim.NewSGD(params, optim.SGDConfig{LR: 0.1})
	optimizer.Step(grads)
	assert.NotEqual(t, before, params[0].Tensor().Data())
}

func TestPublicCustomNorm(t *testing.T) {
	cfg := vae.DefaultConfig()
	cfg.Norm = "plain"
	cfg.Channels = []int{2, 2, 2}

	_, err := vae.New(cfg, cpu.New(), vae.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.ErrorIs(t, err, vae.ErrInvalidConfig)

	registry := nn.NewNormRegistry[*cpu.Backend]()
	registry.Register("plain", func(int, nn.NormConfig, *cpu.Backend) nn.Norm3D[*cpu.Backend] {
		return nn.NewIdentityNorm[*cpu.Backend]()
	})
	model, err := vae.New(cfg, cpu.New(),
		vae.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		vae.WithNormRegistry(registry))
	require.NoError(t, err)

	counts := model.ParameterCounts()
	assert.Equal(t, counts.Total(), counts.Encoder+counts.Heads+counts.Decoder)
}
