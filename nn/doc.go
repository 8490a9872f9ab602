// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers the VAE is assembled from.
//
// # Overview
//
// This package contains:
//   - Layers: Conv3D, ConvTranspose3D
//   - Activations: LeakyReLU
//   - Normalizations: a registry of Norm3D factories (batch, instance, group, none)
//   - Loss functions: L1Loss, GaussianKL
//   - Utilities: Sequential, Module interface, Parameter
//   - Initialization: DefaultConvInit, XavierNormal, Xavier
//
// # Custom normalization
//
// A NormRegistry maps identifiers to factories. Register a factory and pass
// the registry to vae.New with vae.WithNormRegistry:
//
//	registry := nn.NewNormRegistry[*cpu.Backend]()
//	registry.Register("rms", newRMSNorm)
//	model, err := vae.New(cfg, cpu.New(), vae.WithNormRegistry(registry))
package nn
