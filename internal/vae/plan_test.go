package vae_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/tensor"
	"github.com/born-ml/vae3d/internal/vae"
)

func transitions(stages []vae.Stage) []tensor.Dims3 {
	var out []tensor.Dims3
	for _, s := range stages {
		if s.Transition() {
			out = append(out, s.Stride)
		}
	}
	return out
}

func TestNewPlan_Topology(t *testing.T) {
	plan, err := vae.NewPlan(3, []int{8, 16, 32, 64})
	require.NoError(t, err)

	one := tensor.Uniform(1)
	assert.Equal(t, []vae.Stage{
		{InChannels: 3, OutChannels: 8, Stride: one},
		{InChannels: 8, OutChannels: 8, Stride: one},
		{InChannels: 8, OutChannels: 16, Stride: tensor.Dims3{1, 2, 2}},
		{InChannels: 16, OutChannels: 16, Stride: one},
		{InChannels: 16, OutChannels: 16, Stride: one},
		{InChannels: 16, OutChannels: 32, Stride: tensor.Dims3{2, 1, 1}},
		{InChannels: 32, OutChannels: 32, Stride: one},
		{InChannels: 32, OutChannels: 32, Stride: one},
		{InChannels: 32, OutChannels: 64, Stride: tensor.Dims3{1, 2, 2}},
	}, plan.Encoder)

	assert.Equal(t, []vae.Stage{
		{InChannels: 64, OutChannels: 64, Stride: tensor.Dims3{1, 2, 2}},
		{InChannels: 64, OutChannels: 64, Stride: one},
		{InChannels: 64, OutChannels: 32, Stride: one},
		{InChannels: 32, OutChannels: 32, Stride: tensor.Dims3{2, 1, 1}},
		{InChannels: 32, OutChannels: 32, Stride: one},
		{InChannels: 32, OutChannels: 16, Stride: one},
		{InChannels: 16, OutChannels: 16, Stride: tensor.Dims3{1, 2, 2}},
		{InChannels: 16, OutChannels: 16, Stride: one},
		{InChannels: 16, OutChannels: vae.OutputChannels, Stride: one},
	}, plan.Decoder)
	assert.Equal(t, 64, plan.Latent)
}

func TestNewPlan_DecoderMirrorsEncoder(t *testing.T) {
	for n := config.MinStages; n <= config.MaxStages; n++ {
		channels := make([]int, n)
		for i := range channels {
			channels[i] = 4 * (i + 1)
		}
		plan, err := vae.NewPlan(1, channels)
		require.NoError(t, err, n)

		assert.Len(t, plan.Encoder, 3*(n-1))
		assert.Len(t, plan.Decoder, 3*(n-1))

		enc := transitions(plan.Encoder)
		dec := transitions(plan.Decoder)
		require.Len(t, dec, len(enc))
		for i := range enc {
			assert.Equal(t, enc[len(enc)-1-i], dec[i], "channels=%d transition %d", n, i)
		}

		// Stages chain and the decoder starts where the encoder ends.
		for i := 1; i < len(plan.Encoder); i++ {
			assert.Equal(t, plan.Encoder[i-1].OutChannels, plan.Encoder[i].InChannels)
			assert.Equal(t, plan.Decoder[i-1].OutChannels, plan.Decoder[i].InChannels)
		}
		assert.Equal(t, plan.Latent, plan.Decoder[0].InChannels)
		assert.Equal(t, vae.OutputChannels, plan.Decoder[len(plan.Decoder)-1].OutChannels)
	}
}

func TestNewPlan_DecoderTransitionStrides(t *testing.T) {
	// Seven channels use the whole stride table, read back to front.
	plan, err := vae.NewPlan(1, []int{2, 2, 2, 2, 2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []tensor.Dims3{
		{1, 2, 2}, {2, 1, 1}, {1, 2, 2}, {1, 2, 2}, {2, 1, 1}, {1, 2, 2},
	}, transitions(plan.Decoder))

	// Three channels undo only the first two encoder transitions.
	plan, err = vae.NewPlan(1, []int{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []tensor.Dims3{{1, 2, 2}, {2, 1, 1}}, transitions(plan.Encoder))
	assert.Equal(t, []tensor.Dims3{{2, 1, 1}, {1, 2, 2}}, transitions(plan.Decoder))
	assert.True(t, plan.RoundTrips(tensor.Dims3{3, 4, 4}))
}

func TestPlan_Shapes(t *testing.T) {
	plan, err := vae.NewPlan(3, []int{4, 4, 4, 4, 4, 4, 4})
	require.NoError(t, err)

	// Four spatial and two temporal stride-2 transitions.
	assert.Equal(t, tensor.Dims3{1, 2, 2}, plan.LatentShape(tensor.Dims3{1, 32, 32}))
	assert.True(t, plan.RoundTrips(tensor.Dims3{1, 32, 32}))
	assert.True(t, plan.RoundTrips(tensor.Dims3{1, 64, 96}))
	assert.False(t, plan.RoundTrips(tensor.Dims3{1, 32, 24}))
	assert.False(t, plan.RoundTrips(tensor.Dims3{2, 32, 32}))

	short, err := vae.NewPlan(3, []int{4, 4, 4, 4})
	require.NoError(t, err)
	// One temporal stride-2 transition: odd extents survive it.
	assert.True(t, short.RoundTrips(tensor.Dims3{3, 8, 8}))
	assert.Equal(t, tensor.Dims3{2, 2, 2}, short.LatentShape(tensor.Dims3{3, 8, 8}))
	assert.False(t, short.RoundTrips(tensor.Dims3{4, 8, 8}))
	assert.Equal(t, tensor.Dims3{3, 8, 8}, short.OutputShape(tensor.Dims3{4, 8, 8}))
}

func TestNewPlan_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       int
		channels []int
		key      string
	}{
		{"no input channels", 0, []int{1, 2, 3}, "in_channels"},
		{"too short", 3, []int{1, 2}, "channels"},
		{"longer than stride table", 3, []int{1, 2, 3, 4, 5, 6, 7, 8}, "channels"},
		{"zero channel", 3, []int{1, 0, 3}, "channels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vae.NewPlan(tt.in, tt.channels)
			require.ErrorIs(t, err, vae.ErrInvalidConfig)
			var cfgErr *vae.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestStage_String(t *testing.T) {
	s := vae.Stage{InChannels: 8, OutChannels: 16, Stride: tensor.Dims3{1, 2, 2}}
	assert.Equal(t, "8->16 stride (1, 2, 2)", s.String())
	assert.True(t, s.Transition())
}
