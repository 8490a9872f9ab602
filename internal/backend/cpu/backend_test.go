package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/tensor"
)

func rawFrom(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), data)
	return r
}

func seq(n int, start float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCPUBackend_AddSameShape(t *testing.T) {
	backend := New()
	a := rawFrom(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFrom(t, []float32{10, 11, 12, 13, 14, 15}, tensor.Shape{2, 3})

	result := backend.Add(a, b)

	assert.Equal(t, []float32{11, 13, 15, 17, 19, 21}, result.AsFloat32())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, a.AsFloat32(), "operands must not be modified")
}

func TestCPUBackend_BroadcastChannelBias(t *testing.T) {
	backend := New()
	x := rawFrom(t, make([]float32, 2*3*1*2*2), tensor.Shape{2, 3, 1, 2, 2})
	bias := rawFrom(t, []float32{1, 2, 3}, tensor.Shape{1, 3, 1, 1, 1})

	y := backend.Add(x, bias).AsFloat32()

	require.Len(t, y, 24)
	for n := 0; n < 2; n++ {
		for c := 0; c < 3; c++ {
			for i := 0; i < 4; i++ {
				assert.Equal(t, float32(c+1), y[(n*3+c)*4+i])
			}
		}
	}
}

func TestCPUBackend_SubMulDivScalarBroadcast(t *testing.T) {
	backend := New()
	x := rawFrom(t, []float32{2, 4, 6, 8}, tensor.Shape{2, 2})
	s := rawFrom(t, []float32{2}, tensor.Shape{})

	assert.Equal(t, []float32{0, 2, 4, 6}, backend.Sub(x, s).AsFloat32())
	assert.Equal(t, []float32{4, 8, 12, 16}, backend.Mul(x, s).AsFloat32())
	assert.Equal(t, []float32{1, 2, 3, 4}, backend.Div(x, s).AsFloat32())
}

func TestCPUBackend_IncompatibleShapesPanic(t *testing.T) {
	backend := New()
	a := rawFrom(t, seq(6, 0), tensor.Shape{2, 3})
	b := rawFrom(t, seq(4, 0), tensor.Shape{2, 2})
	assert.Panics(t, func() { backend.Add(a, b) })
}

func TestCPUBackend_UnaryOps(t *testing.T) {
	backend := New()
	x := rawFrom(t, []float32{-2, -0.5, 0, 1, 4}, tensor.Shape{5})

	assert.Equal(t, []float32{2, 0.5, 0, 1, 4}, backend.Abs(x).AsFloat32())
	assert.InDeltaSlice(t, []float32{-0.4, -0.1, 0, 1, 4}, backend.LeakyReLU(x, 0.2).AsFloat32(), 1e-6)
	assert.Equal(t, []float32{-4, -1, 0, 2, 8}, backend.MulScalar(x, 2.0).AsFloat32())
	assert.Equal(t, []float32{-1, 0.5, 1, 2, 5}, backend.AddScalar(x, float32(1)).AsFloat32())

	e := backend.Exp(x).AsFloat32()
	for i, v := range []float32{-2, -0.5, 0, 1, 4} {
		assert.InDelta(t, math.Exp(float64(v)), float64(e[i]), 1e-4)
	}

	r := backend.Rsqrt(rawFrom(t, []float32{4, 0.25}, tensor.Shape{2})).AsFloat32()
	assert.InDeltaSlice(t, []float32{0.5, 2}, r, 1e-6)
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := New()
	x := rawFrom(t, seq(12, 1), tensor.Shape{2, 3, 2})

	total := backend.Sum(x)
	assert.Empty(t, total.Shape())
	assert.Equal(t, float32(78), total.AsFloat32()[0])

	s1 := backend.SumDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1, 2}, s1.Shape())
	assert.Equal(t, []float32{9, 12, 27, 30}, s1.AsFloat32())

	s0 := backend.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3, 2}, s0.Shape())
	assert.Equal(t, []float32{8, 10, 12, 14, 16, 18}, s0.AsFloat32())

	m := backend.MeanDim(x, -1, false)
	assert.Equal(t, tensor.Shape{2, 3}, m.Shape())
	assert.Equal(t, []float32{1.5, 3.5, 5.5, 7.5, 9.5, 11.5}, m.AsFloat32())
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := New()
	x := rawFrom(t, seq(6, 0), tensor.Shape{1, 6})
	y := backend.Reshape(x, tensor.Shape{2, 3})

	assert.Equal(t, tensor.Shape{2, 3}, y.Shape())
	assert.Equal(t, x.AsFloat32(), y.AsFloat32())
	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{4}) })
}

func TestCPUBackend_SequentialMatchesParallel(t *testing.T) {
	x := rawFrom(t, seq(2*3*3*6*6, -50), tensor.Shape{2, 3, 3, 6, 6})
	k := rawFrom(t, seq(4*3*27, -100), tensor.Shape{4, 3, 3, 3, 3})

	a := New().Conv3D(x, k, tensor.Dims3{1, 2, 2}, tensor.Uniform(1))
	b := NewSequential().Conv3D(x, k, tensor.Dims3{1, 2, 2}, tensor.Uniform(1))

	assert.Equal(t, a.AsFloat32(), b.AsFloat32())
}
