package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae3d/internal/autodiff"
	"github.com/born-ml/vae3d/internal/backend/cpu"
	"github.com/born-ml/vae3d/internal/tensor"
)

type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func fromSlice(t *testing.T, backend adBackend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, adBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	return x
}

func TestAutodiffBackend_NameAndDevice(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.Equal(t, "CPU", backend.Inner().Name())
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	assert.False(t, tape.IsRecording(), "tape should not record initially")
	tape.StartRecording()
	assert.True(t, tape.IsRecording())
	tape.StopRecording()
	assert.False(t, tape.IsRecording())
}

func TestTape_ClearKeepsRecordingState(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	a := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	b := fromSlice(t, backend, []float32{3, 4}, tensor.Shape{2})
	_ = a.Add(b)
	_ = a.Mul(b)
	assert.Equal(t, 2, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestTape_NotRecordingRecordsNothing(t *testing.T) {
	backend := autodiff.New(cpu.New())
	a := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	_ = a.Add(a).Exp()
	assert.Equal(t, 0, backend.Tape().NumOps())

	assert.Panics(t, func() { autodiff.Backward(a, backend) })
}

func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{2, -3}, tensor.Shape{2})
	y := x.Mul(x).Sum()

	grads := autodiff.Backward(y, backend)
	require.Contains(t, grads, x.Raw())
	assert.Equal(t, []float32{4, -6}, grads[x.Raw()].AsFloat32())
	assert.True(t, backend.Tape().IsRecording(), "recording state restored after backward")
}

func TestBackward_BroadcastBias(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Zeros[float32](tensor.Shape{2, 3, 1, 2, 2}, backend)
	bias := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{3})
	y := x.Add(bias.Reshape(1, 3, 1, 1, 1)).Sum()

	grads := autodiff.Backward(y, backend)
	require.Contains(t, grads, bias.Raw())
	assert.Equal(t, tensor.Shape{3}, grads[bias.Raw()].Shape())
	assert.Equal(t, []float32{8, 8, 8}, grads[bias.Raw()].AsFloat32())
}

func TestBackward_IgnoresLaterOperations(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{3})
	loss := x.MulScalar(2).Sum()
	_ = x.Exp().Sum() // recorded after loss, must not contribute

	grads := autodiff.Backward(loss, backend)
	assert.Equal(t, []float32{2, 2, 2}, grads[x.Raw()].AsFloat32())
}

func TestBackward_DetachStopsGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	loss := x.Detach().Mul(x).Sum()

	grads := autodiff.Backward(loss, backend)
	// Only the non-detached factor contributes: d(c*x)/dx = c.
	assert.Equal(t, []float32{1, 2}, grads[x.Raw()].AsFloat32())
}
