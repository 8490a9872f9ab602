package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/tensor"
)

// Conv3D is a 3D convolutional layer.
//
// Performs convolution: output = Conv3D(input, weight) + bias
//
// Input shape:  [batch, in_channels, T, H, W]
// Weight shape: [out_channels, in_channels, k_t, k_h, k_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, T_out, H_out, W_out]
//
// Where, per axis:
//
//	out = (in + 2*padding - k) / stride + 1
//
// Example:
//
//	// 3 channels -> 64 channels, 3x3x3 kernel, halve height and width
//	conv := nn.NewConv3D(3, 64, tensor.Uniform(3), tensor.Dims3{1, 2, 2}, tensor.Uniform(1), nil, rng, backend)
//	output := conv.Forward(input) // [N, 3, 5, 64, 64] -> [N, 64, 5, 32, 32]
type Conv3D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  tensor.Dims3
	stride      tensor.Dims3
	padding     tensor.Dims3

	weight *Parameter[B] // [out_channels, in_channels, k_t, k_h, k_w]
	bias   *Parameter[B] // [out_channels]

	backend B
}

// NewConv3D creates a new 3D convolutional layer with bias.
//
// Parameters:
//   - inChannels, outChannels: channel counts
//   - kernel, stride, padding: per-axis (T, H, W) geometry
//   - init: weight/bias initializer, nil selects DefaultConvInit
//   - rng: source for the initializer, nil selects a clock-seeded one
//   - backend: Backend for computation
//
// Initialization fan sizes:
//
//	fan_in  = in_channels  * k_t * k_h * k_w
//	fan_out = out_channels * k_t * k_h * k_w
func NewConv3D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding tensor.Dims3,
	init Init,
	rng *rand.Rand,
	backend B,
) *Conv3D[B] {
	validateConvGeometry("conv3d", inChannels, outChannels, kernel, stride, padding)

	kVol := kernel[0] * kernel[1] * kernel[2]
	weight, bias := newConvParams("conv3d",
		tensor.Shape{outChannels, inChannels, kernel[0], kernel[1], kernel[2]},
		outChannels, inChannels*kVol, outChannels*kVol, init, rng, backend)

	return &Conv3D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernel,
		stride:      stride,
		padding:     padding,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward performs the forward pass.
//
// Panics with a *ShapeError if input is not [N, in_channels, T, H, W] or is
// too small for the kernel.
func (c *Conv3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	checkVolume("conv3d", shape, c.inChannels)
	if out := c.OutputSize(shape.Volume()); out[0] <= 0 || out[1] <= 0 || out[2] <= 0 {
		panic(&ShapeError{Op: "conv3d", Shape: shape, Reason: "input smaller than kernel"})
	}

	outputRaw := c.backend.Conv3D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding)
	output := tensor.New[float32, B](outputRaw, c.backend)

	// Reshape bias using Tensor API so the reshape is recorded on the tape.
	return output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1, 1))
}

// Parameters returns [weight, bias].
func (c *Conv3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// Weight returns the kernel parameter.
func (c *Conv3D[B]) Weight() *Parameter[B] { return c.weight }

// Bias returns the bias parameter.
func (c *Conv3D[B]) Bias() *Parameter[B] { return c.bias }

// InChannels returns the number of input channels.
func (c *Conv3D[B]) InChannels() int { return c.inChannels }

// OutChannels returns the number of output channels.
func (c *Conv3D[B]) OutChannels() int { return c.outChannels }

// Stride returns the per-axis stride.
func (c *Conv3D[B]) Stride() tensor.Dims3 { return c.stride }

// OutputSize computes the output (T, H, W) for a given input extent.
func (c *Conv3D[B]) OutputSize(in tensor.Dims3) tensor.Dims3 {
	var out tensor.Dims3
	for a := range out {
		out[a] = (in[a]+2*c.padding[a]-c.kernelSize[a])/c.stride[a] + 1
	}
	return out
}

// String returns a string representation of the layer.
func (c *Conv3D[B]) String() string {
	return fmt.Sprintf("Conv3D(in_channels=%d, out_channels=%d, kernel_size=%v, stride=%v, padding=%v)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}

func validateConvGeometry(op string, inChannels, outChannels int, kernel, stride, padding tensor.Dims3) {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("%s: invalid channels in=%d, out=%d", op, inChannels, outChannels))
	}
	for a := 0; a < 3; a++ {
		if kernel[a] <= 0 {
			panic(fmt.Sprintf("%s: invalid kernel size %v", op, kernel))
		}
		if stride[a] <= 0 {
			panic(fmt.Sprintf("%s: invalid stride %v", op, stride))
		}
		if padding[a] < 0 {
			panic(fmt.Sprintf("%s: invalid padding %v", op, padding))
		}
	}
}
