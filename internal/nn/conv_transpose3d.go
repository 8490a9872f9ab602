package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/tensor"
)

// ConvTranspose3D is a 3D transposed (fractionally-strided) convolution layer.
//
// Input shape:  [batch, in_channels, T, H, W]
// Weight shape: [in_channels, out_channels, k_t, k_h, k_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, T_out, H_out, W_out]
//
// Where, per axis:
//
//	out = (in - 1) * stride - 2*padding + k + output_padding
//
// With k = 3, padding = 1 and output_padding = stride - 1 the layer exactly
// undoes the extent reduction of a Conv3D with the same stride.
type ConvTranspose3D[B tensor.Backend] struct {
	inChannels    int
	outChannels   int
	kernelSize    tensor.Dims3
	stride        tensor.Dims3
	padding       tensor.Dims3
	outputPadding tensor.Dims3

	weight *Parameter[B] // [in_channels, out_channels, k_t, k_h, k_w]
	bias   *Parameter[B] // [out_channels]

	backend B
}

// NewConvTranspose3D creates a new 3D transposed convolution layer with bias.
//
// outputPadding must be smaller than stride on every axis.
//
// The weight's second axis is out_channels, so the initializer sees
// fan_in = out_channels * k_t * k_h * k_w, mirroring how the stock
// transposed convolution computes its bound.
func NewConvTranspose3D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding, outputPadding tensor.Dims3,
	init Init,
	rng *rand.Rand,
	backend B,
) *ConvTranspose3D[B] {
	validateConvGeometry("convtranspose3d", inChannels, outChannels, kernel, stride, padding)
	for a := 0; a < 3; a++ {
		if outputPadding[a] < 0 || outputPadding[a] >= stride[a] {
			panic(fmt.Sprintf("convtranspose3d: output padding %v must be in [0, stride %v)", outputPadding, stride))
		}
	}

	kVol := kernel[0] * kernel[1] * kernel[2]
	weight, bias := newConvParams("convtranspose3d",
		tensor.Shape{inChannels, outChannels, kernel[0], kernel[1], kernel[2]},
		outChannels, outChannels*kVol, inChannels*kVol, init, rng, backend)

	return &ConvTranspose3D[B]{
		inChannels:    inChannels,
		outChannels:   outChannels,
		kernelSize:    kernel,
		stride:        stride,
		padding:       padding,
		outputPadding: outputPadding,
		weight:        weight,
		bias:          bias,
		backend:       backend,
	}
}

// Forward performs the forward pass.
//
// Panics with a *ShapeError if input is not [N, in_channels, T, H, W].
func (c *ConvTranspose3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	checkVolume("convtranspose3d", shape, c.inChannels)
	if out := c.OutputSize(shape.Volume()); out[0] <= 0 || out[1] <= 0 || out[2] <= 0 {
		panic(&ShapeError{Op: "convtranspose3d", Shape: shape, Reason: "non-positive output extent"})
	}

	outputRaw := c.backend.ConvTranspose3D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding, c.outputPadding)
	output := tensor.New[float32, B](outputRaw, c.backend)

	return output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1, 1))
}

// Parameters returns [weight, bias].
func (c *ConvTranspose3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// Weight returns the kernel parameter.
func (c *ConvTranspose3D[B]) Weight() *Parameter[B] { return c.weight }

// Bias returns the bias parameter.
func (c *ConvTranspose3D[B]) Bias() *Parameter[B] { return c.bias }

// InChannels returns the number of input channels.
func (c *ConvTranspose3D[B]) InChannels() int { return c.inChannels }

// OutChannels returns the number of output channels.
func (c *ConvTranspose3D[B]) OutChannels() int { return c.outChannels }

// OutputSize computes the output (T, H, W) for a given input extent.
func (c *ConvTranspose3D[B]) OutputSize(in tensor.Dims3) tensor.Dims3 {
	var out tensor.Dims3
	for a := range out {
		out[a] = (in[a]-1)*c.stride[a] - 2*c.padding[a] + c.kernelSize[a] + c.outputPadding[a]
	}
	return out
}

// String returns a string representation of the layer.
func (c *ConvTranspose3D[B]) String() string {
	return fmt.Sprintf("ConvTranspose3D(in_channels=%d, out_channels=%d, kernel_size=%v, stride=%v, padding=%v, output_padding=%v)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.outputPadding)
}
