package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/config"
)

const sample = `
in_channels: 3
channels: [8, 16, 32]
norm: group
w_kl: 0.5
norm_groups: 4
seed: 7
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.InChannels)
	assert.Equal(t, []int{8, 16, 32}, cfg.Channels)
	assert.Equal(t, "group", cfg.Norm)
	assert.InDelta(t, 0.5, cfg.KLWeight, 1e-12)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, "default", cfg.Init, "optional keys fall back to defaults")

	norm := cfg.NormConfig()
	assert.Equal(t, 4, norm.Groups)
	assert.InDelta(t, 1e-5, norm.Eps, 1e-12)
	assert.InDelta(t, 0.1, norm.Momentum, 1e-7)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"in_channels": 1, "channels": [4, 4, 4], "norm": "none", "w_kl": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.InChannels)
	assert.Zero(t, cfg.KLWeight)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
	}{
		{"empty", ``, "in_channels"},
		{"missing channels", "in_channels: 3\nnorm: batch\nw_kl: 1", "channels"},
		{"missing norm", "in_channels: 3\nchannels: [1,2,3]\nw_kl: 1", "norm"},
		{"missing w_kl", "in_channels: 3\nchannels: [1,2,3]\nnorm: batch", "w_kl"},
		{"zero in_channels", "in_channels: 0\nchannels: [1,2,3]\nnorm: batch\nw_kl: 1", "in_channels"},
		{"too few stages", "in_channels: 3\nchannels: [1,2]\nnorm: batch\nw_kl: 1", "channels"},
		{"too many stages", "in_channels: 3\nchannels: [1,2,3,4,5,6,7,8]\nnorm: batch\nw_kl: 1", "channels"},
		{"negative channel", "in_channels: 3\nchannels: [1,-2,3]\nnorm: batch\nw_kl: 1", "channels"},
		{"unknown norm", "in_channels: 3\nchannels: [1,2,3]\nnorm: layer\nw_kl: 1", "norm"},
		{"negative w_kl", "in_channels: 3\nchannels: [1,2,3]\nnorm: batch\nw_kl: -1", "w_kl"},
		{"unknown init", "in_channels: 3\nchannels: [1,2,3]\nnorm: batch\nw_kl: 1\ninit: orthogonal", "init"},
		{"bad momentum", "in_channels: 3\nchannels: [1,2,3]\nnorm: batch\nw_kl: 1\nnorm_momentum: 2", "norm_momentum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			var cfgErr *config.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := config.Parse([]byte("in_channels: 3\nchannels: [1,2,3]\nnorm: batch\nw_kl: 1\nstrides: [1]"))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.KLWeight = math.NaN()
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

	cfg = config.Default()
	cfg.Norm = "custom"
	require.Error(t, cfg.Validate())
	require.NoError(t, cfg.ValidateWith(func(name string) bool { return name == "custom" }))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vae.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "group", cfg.Norm)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCloneAndMarshal(t *testing.T) {
	cfg := config.Default()
	clone := cfg.Clone()
	clone.Channels[0] = 999
	assert.NotEqual(t, 999, cfg.Channels[0])

	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
