// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vae provides a 3D convolutional variational autoencoder for
// volumetric data [batch, channel, temporal, height, width] and its
// KL + L1 training loss.
//
// # Basic Usage
//
//	cfg, err := vae.LoadConfig("vae.yaml")
//	if err != nil {
//	    return err
//	}
//
//	backend := autodiff.New(cpu.New())
//	model, err := vae.New(cfg, backend, vae.WithRand(tensor.NewRand(cfg.Seed)))
//	if err != nil {
//	    return err
//	}
//	criterion, err := vae.NewLoss(cfg, backend)
//	if err != nil {
//	    return err
//	}
//
//	backend.Tape().StartRecording()
//	recon, mean, logvar := model.Forward(x)
//	loss := criterion.Forward(x, recon, mean, logvar)
//	grads := autodiff.Backward(loss.Total, backend)
//	backend.Tape().StopRecording()
//
// Reconstructions keep the input extent whenever Plan.RoundTrips reports so:
// height and width divisible by two per spatial transition, and an odd
// temporal extent at every temporal transition (a temporal extent of 1
// always works).
package vae

import (
	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
	"github.com/born-ml/vae3d/internal/vae"
)

// Config is the VAE configuration record.
type Config = config.Config

// DefaultConfig returns a small valid configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// ParseConfig decodes and validates a YAML configuration document.
func ParseConfig(data []byte) (Config, error) {
	return config.Parse(data)
}

// Model is the 3D convolutional VAE.
type Model[B tensor.Backend] = vae.Model[B]

// Option configures New.
type Option = vae.Option

// New builds a model from cfg on backend.
func New[B tensor.Backend](cfg Config, backend B, opts ...Option) (*Model[B], error) {
	return vae.New(cfg, backend, opts...)
}

// Options.
var (
	WithLogger = vae.WithLogger
	WithRand   = vae.WithRand
)

// WithNormRegistry resolves cfg.Norm through registry.
func WithNormRegistry[B tensor.Backend](registry *nn.NormRegistry[B]) Option {
	return vae.WithNormRegistry(registry)
}

// Plan lists encoder and decoder stages.
type Plan = vae.Plan

// Stage describes one residual block.
type Stage = vae.Stage

// NewPlan builds the stage plan for in input channels and channels.
func NewPlan(in int, channels []int) (*Plan, error) {
	return vae.NewPlan(in, channels)
}

// ParameterCounts holds learnable scalar counts per model part.
type ParameterCounts = vae.ParameterCounts

// Loss is the weighted KL + L1 loss.
type Loss[B tensor.Backend] = vae.Loss[B]

// LossResult holds total, reconstruction and KL terms.
type LossResult[B tensor.Backend] = vae.LossResult[B]

// NewLoss creates the loss for cfg.KLWeight.
func NewLoss[B tensor.Backend](cfg Config, backend B) (*Loss[B], error) {
	return vae.NewLoss(cfg, backend)
}

// OutputChannels is the channel count of every reconstruction.
const OutputChannels = vae.OutputChannels

// Errors.
var (
	ErrInvalidConfig  = vae.ErrInvalidConfig
	ErrShape          = vae.ErrShape
	ErrNumericAnomaly = vae.ErrNumericAnomaly
)

// ShapeError describes a rejected tensor shape.
type ShapeError = vae.ShapeError

// ConfigError describes a missing or malformed configuration key.
type ConfigError = vae.ConfigError
