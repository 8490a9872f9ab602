package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopBackend satisfies Backend for creation and indexing tests that never
// dispatch a kernel.
type nopBackend struct{ Backend }

func (nopBackend) Device() Device { return CPU }

func TestShape_NumElementsAndStrides(t *testing.T) {
	s := Shape{2, 3, 5, 4, 4}
	assert.Equal(t, 480, s.NumElements())
	assert.Equal(t, []int{240, 80, 16, 4, 1}, s.ComputeStrides())
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, Dims3{5, 4, 4}, s.Volume())
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{1, 1}.Validate())
	require.Error(t, Shape{1, 0, 3}.Validate())
	require.Error(t, Shape{-2}.Validate())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{"equal", Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{"channel bias", Shape{1, 4, 1, 1, 1}, Shape{2, 4, 3, 8, 8}, Shape{2, 4, 3, 8, 8}, true, false},
		{"scalar", Shape{}, Shape{2, 2}, Shape{2, 2}, true, false},
		{"incompatible", Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestRawTensor_CloneIsDeep(t *testing.T) {
	r := MustNewRaw(Shape{2, 2}, Float32, CPU)
	r.AsFloat32()[0] = 1

	c := r.Clone()
	c.AsFloat32()[0] = 5

	assert.Equal(t, float32(1), r.AsFloat32()[0])
	assert.Equal(t, float32(5), c.AsFloat32()[0])
}

func TestRawTensor_ViewSharesData(t *testing.T) {
	r := MustNewRaw(Shape{2, 3}, Float32, CPU)
	v, err := r.View(Shape{6})
	require.NoError(t, err)

	v.AsFloat32()[4] = 7
	assert.Equal(t, float32(7), r.AsFloat32()[4])

	_, err = r.View(Shape{4})
	assert.Error(t, err)
}

func TestFromSlice(t *testing.T) {
	b := nopBackend{}
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{1, 1, 1, 2, 3}, b)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(0, 0, 0, 1, 2))

	x.Set(-1, 0, 0, 0, 0, 1)
	assert.Equal(t, []float32{1, -1, 3, 4, 5, 6}, x.Data())

	_, err = FromSlice([]float32{1, 2}, Shape{3}, b)
	assert.Error(t, err)
}

func TestRandn_SeededIsReproducible(t *testing.T) {
	b := nopBackend{}
	a := Randn[float32](Shape{2, 3, 1, 4, 4}, NewRand(42), b)
	c := Randn[float32](Shape{2, 3, 1, 4, 4}, NewRand(42), b)
	d := Randn[float32](Shape{2, 3, 1, 4, 4}, NewRand(43), b)

	assert.Equal(t, a.Data(), c.Data())
	assert.NotEqual(t, a.Data(), d.Data())
}

func TestRandUniform_Bounds(t *testing.T) {
	x := RandUniform[float32](Shape{1000}, -0.5, 0.5, NewRand(7), nopBackend{})
	for _, v := range x.Data() {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestIsFinite(t *testing.T) {
	b := nopBackend{}
	x := Ones[float32](Shape{3}, b)
	assert.True(t, IsFinite(x))

	x.Data()[1] = float32(math.Inf(1))
	assert.False(t, IsFinite(x))
}

func TestDetach_NewIdentitySameData(t *testing.T) {
	x := Full[float32](Shape{2}, 3, nopBackend{})
	d := x.Detach()

	assert.NotSame(t, x.Raw(), d.Raw())
	assert.Equal(t, x.Data(), d.Data())
}
