package nn_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/autodiff"
	"github.com/born-ml/vae3d/internal/backend/cpu"
	"github.com/born-ml/vae3d/internal/nn"
	"github.com/born-ml/vae3d/internal/tensor"
)

type cpuBackend = *cpu.CPUBackend

// shapePanic runs f and returns the *ShapeError it panicked with.
func shapePanic(t *testing.T, f func()) *nn.ShapeError {
	t.Helper()
	var got *nn.ShapeError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.ErrorIs(t, err, nn.ErrShape)
			require.ErrorAs(t, err, &got)
		}()
		f()
	}()
	return got
}

func TestParameter(t *testing.T) {
	backend := cpu.New()

	data, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	param := nn.NewParameter("test_param", data)

	assert.Equal(t, "test_param", param.Name())
	assert.Same(t, data, param.Tensor())
	assert.Nil(t, param.Grad())

	grad, err := tensor.FromSlice([]float32{0.1, 0.2, 0.3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	param.SetGrad(grad)
	assert.Same(t, grad, param.Grad())

	param.ZeroGrad()
	assert.Nil(t, param.Grad())
}

func TestCollectGrads(t *testing.T) {
	backend := cpu.New()
	a := nn.NewParameter("a", tensor.Ones[float32](tensor.Shape{2}, backend))
	b := nn.NewParameter("b", tensor.Ones[float32](tensor.Shape{2}, backend))
	b.SetGrad(tensor.Ones[float32](tensor.Shape{2}, backend))

	g := tensor.Full[float32](tensor.Shape{2}, 5, backend)
	nn.CollectGrads([]*nn.Parameter[cpuBackend]{a, b}, map[*tensor.RawTensor]*tensor.RawTensor{
		a.Tensor().Raw(): g.Raw(),
	})

	require.NotNil(t, a.Grad())
	assert.Equal(t, []float32{5, 5}, a.Grad().Data())
	assert.Nil(t, b.Grad(), "parameters without a gradient are reset")
}

func TestConv3D_ShapesAndParameters(t *testing.T) {
	backend := cpu.New()
	rng := tensor.NewRand(1)

	conv := nn.NewConv3D(3, 8, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), nil, rng, backend)
	assert.Equal(t, 3, conv.InChannels())
	assert.Equal(t, 8, conv.OutChannels())
	assert.Equal(t, tensor.Shape{8, 3, 3, 3, 3}, conv.Weight().Tensor().Shape())
	assert.Equal(t, tensor.Shape{8}, conv.Bias().Tensor().Shape())
	assert.Equal(t, 8*3*27+8, nn.NumParameters[cpuBackend](conv))

	x := tensor.Randn[float32](tensor.Shape{2, 3, 5, 8, 8}, rng, backend)
	y := conv.Forward(x)
	assert.Equal(t, tensor.Shape{2, 8, 5, 4, 4}, y.Shape())
	assert.Equal(t, tensor.Dims3{5, 4, 4}, conv.OutputSize(tensor.Dims3{5, 8, 8}))
	assert.Contains(t, conv.String(), "stride=(1, 2, 2)")
}

func TestConv3D_BiasBroadcast(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv3D(2, 3, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, tensor.NewRand(2), backend)
	clear(conv.Weight().Tensor().Data())
	copy(conv.Bias().Tensor().Data(), []float32{1, 2, 3})

	y := conv.Forward(tensor.Randn[float32](tensor.Shape{1, 2, 1, 2, 2}, tensor.NewRand(3), backend))
	for c := 0; c < 3; c++ {
		assert.Equal(t, float32(c+1), y.At(0, c, 0, 1, 1))
	}
}

func TestConv3D_ShapeErrors(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv3D(3, 4, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, tensor.NewRand(4), backend)

	err := shapePanic(t, func() { conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 2, 1, 4, 4}, backend)) })
	assert.Equal(t, "conv3d", err.Op)
	assert.Equal(t, tensor.Shape{1, 2, 1, 4, 4}, err.Shape)

	shapePanic(t, func() { conv.Forward(tensor.Zeros[float32](tensor.Shape{3, 4, 4}, backend)) })

	assert.Panics(t, func() {
		nn.NewConv3D(0, 4, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, nil, backend)
	})
}

func TestConv3D_SeededInitIsReproducible(t *testing.T) {
	backend := cpu.New()
	a := nn.NewConv3D(2, 4, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, tensor.NewRand(7), backend)
	b := nn.NewConv3D(2, 4, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, tensor.NewRand(7), backend)
	assert.Equal(t, a.Weight().Tensor().Data(), b.Weight().Tensor().Data())
	assert.Equal(t, a.Bias().Tensor().Data(), b.Bias().Tensor().Data())
}

func TestConvTranspose3D_RestoresExtent(t *testing.T) {
	backend := cpu.New()
	rng := tensor.NewRand(5)

	up := nn.NewConvTranspose3D(8, 3, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), tensor.Dims3{0, 1, 1}, nil, rng, backend)
	assert.Equal(t, tensor.Shape{8, 3, 3, 3, 3}, up.Weight().Tensor().Shape())
	assert.Equal(t, tensor.Shape{3}, up.Bias().Tensor().Shape())

	y := up.Forward(tensor.Randn[float32](tensor.Shape{2, 8, 5, 4, 4}, rng, backend))
	assert.Equal(t, tensor.Shape{2, 3, 5, 8, 8}, y.Shape())

	assert.Panics(t, func() {
		nn.NewConvTranspose3D(8, 3, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), tensor.Dims3{0, 1, 1}, nil, rng, backend)
	})
	shapePanic(t, func() { up.Forward(tensor.Zeros[float32](tensor.Shape{1, 3, 1, 2, 2}, backend)) })
}

func TestInitializers(t *testing.T) {
	rng := tensor.NewRand(9)

	weight := make([]float32, 4096)
	bias := make([]float32, 16)
	nn.DefaultConvInit(weight, bias, 64, 0, rng)
	bound := float32(1.0 / 8.0)
	for _, v := range append(weight, bias...) {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}

	nn.XavierNormal(weight, bias, 100, 100, rng)
	assert.Equal(t, make([]float32, 16), bias)
	var sumSq float64
	for _, v := range weight {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 0.1, math.Sqrt(sumSq/float64(len(weight))), 0.01)

	for _, name := range []string{"", "default", "xavier", "xavier_uniform"} {
		_, ok := nn.InitByName(name)
		assert.True(t, ok, name)
	}
	_, ok := nn.InitByName("orthogonal")
	assert.False(t, ok)
}

func TestLeakyReLU(t *testing.T) {
	backend := cpu.New()
	act := nn.NewLeakyReLU[cpuBackend](0.2)
	x, err := tensor.FromSlice([]float32{-5, 0, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float32{-1, 0, 3}, act.Forward(x).Data(), 1e-6)
	assert.Empty(t, act.Parameters())
	assert.Equal(t, float32(0.2), act.Slope())
}

func TestSequential(t *testing.T) {
	backend := cpu.New()
	rng := tensor.NewRand(6)

	seq := nn.NewSequential[cpuBackend](
		nn.NewConv3D(1, 4, tensor.Uniform(3), tensor.Uniform(1), tensor.Uniform(1), nil, rng, backend),
		nn.NewLeakyReLU[cpuBackend](0.2),
	)
	seq.Add(nn.NewConv3D(4, 2, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), nil, rng, backend))

	assert.Equal(t, 3, seq.Len())
	assert.Len(t, seq.Parameters(), 4)
	assert.Equal(t, (4*27+4)+(2*4*27+2), nn.NumParameters[cpuBackend](seq))

	y := seq.Forward(tensor.Randn[float32](tensor.Shape{1, 1, 1, 4, 4}, rng, backend))
	assert.Equal(t, tensor.Shape{1, 2, 1, 2, 2}, y.Shape())
	assert.Panics(t, func() { seq.Module(3) })
}

func TestConv3D_GradientsReachParameters(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := tensor.NewRand(8)
	conv := nn.NewConv3D(2, 3, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), nil, rng, backend)
	x := tensor.Randn[float32](tensor.Shape{2, 2, 3, 4, 4}, rng, backend)

	backend.Tape().StartRecording()
	loss := conv.Forward(x).Sum()
	grads := autodiff.Backward(loss, backend)
	nn.CollectGrads(conv.Parameters(), grads)

	require.NotNil(t, conv.Weight().Grad())
	require.NotNil(t, conv.Bias().Grad())
	assert.Equal(t, conv.Weight().Tensor().Shape(), conv.Weight().Grad().Shape())

	// d(sum)/d(bias_c) is the number of output positions per channel.
	outPositions := float32(2 * 3 * 2 * 2)
	assert.Equal(t, []float32{outPositions, outPositions, outPositions}, conv.Bias().Grad().Data())
}

func TestL1Loss(t *testing.T) {
	backend := cpu.New()
	l1 := nn.NewL1Loss[cpuBackend]()

	a := tensor.Full[float32](tensor.Shape{1, 1, 1, 1, 1}, 3, backend)
	b := tensor.Full[float32](tensor.Shape{1, 1, 1, 1, 1}, 1, backend)
	assert.InDelta(t, 2.0, float64(l1.Forward(a, b).Item()), 1e-6)
	assert.Empty(t, l1.Forward(a, b).Shape())

	x := tensor.Randn[float32](tensor.Shape{2, 3, 1, 4, 4}, tensor.NewRand(1), backend)
	assert.Zero(t, l1.Forward(x, x.Clone()).Item())

	// A single-channel target broadcasts over the three output channels.
	recon, err := tensor.FromSlice([]float32{1, 2, 4}, tensor.Shape{1, 3, 1, 1, 1}, backend)
	require.NoError(t, err)
	target := tensor.Ones[float32](tensor.Shape{1, 1, 1, 1, 1}, backend)
	assert.InDelta(t, 4.0/3.0, float64(l1.Forward(recon, target).Item()), 1e-6)

	y := tensor.Zeros[float32](tensor.Shape{2, 2, 1, 4, 4}, backend)
	shapePanic(t, func() { l1.Forward(y, x) })
}

func TestL1Loss_BroadcastGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	l1 := nn.NewL1Loss[*autodiff.AutodiffBackend[*cpu.CPUBackend]]()

	recon, err := tensor.FromSlice([]float32{1, 2, 4}, tensor.Shape{1, 3, 1, 1, 1}, backend)
	require.NoError(t, err)
	target, err := tensor.FromSlice([]float32{0}, tensor.Shape{1, 1, 1, 1, 1}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	loss := l1.Forward(recon, target)
	grads := autodiff.Backward(loss, backend)
	backend.Tape().StopRecording()

	require.Contains(t, grads, recon.Raw())
	assert.InDeltaSlice(t, []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, grads[recon.Raw()].AsFloat32(), 1e-6)
	require.Contains(t, grads, target.Raw())
	assert.Equal(t, tensor.Shape{1, 1, 1, 1, 1}, grads[target.Raw()].Shape())
	assert.InDelta(t, -1.0, float64(grads[target.Raw()].AsFloat32()[0]), 1e-6)
}

func TestGaussianKL(t *testing.T) {
	backend := cpu.New()
	kl := nn.NewGaussianKL[cpuBackend]()

	zeros := tensor.Zeros[float32](tensor.Shape{2, 4, 1, 2, 2}, backend)
	assert.InDelta(t, 0.0, float64(kl.Forward(zeros, zeros.Clone()).Item()), 1e-7)

	// mean 1, logvar 0: each element contributes 0.5; 4 elements over 2 samples.
	ones := tensor.Ones[float32](tensor.Shape{2, 1, 1, 1, 2}, backend)
	assert.InDelta(t, 1.0, float64(kl.Forward(ones, tensor.Zeros[float32](ones.Shape(), backend)).Item()), 1e-6)

	rng := tensor.NewRand(3)
	for i := 0; i < 10; i++ {
		mu := tensor.Randn[float32](tensor.Shape{3, 2, 1, 2, 2}, rng, backend)
		lv := tensor.Randn[float32](tensor.Shape{3, 2, 1, 2, 2}, rng, backend)
		assert.GreaterOrEqual(t, float64(kl.Forward(mu, lv).Item()), -1e-5)
	}

	shapePanic(t, func() { kl.Forward(zeros, ones) })
}

func TestShapeError(t *testing.T) {
	err := &nn.ShapeError{Op: "conv3d", Shape: tensor.Shape{1, 2}, Reason: "expected 5D input [N,C,T,H,W]"}
	assert.True(t, errors.Is(err, nn.ErrShape))
	assert.Equal(t, "conv3d: expected 5D input [N,C,T,H,W] (got shape [1 2])", err.Error())
}
