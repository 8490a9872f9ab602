package ops

import "github.com/born-ml/vae3d/internal/tensor"

// Conv3DOp records a 3D convolution operation for autodiff.
//
// Forward: output = Conv3D(input, kernel, stride, padding)
//
// Backward (gradients):
//   - d_input:  transposed convolution of d_output with kernel
//   - d_kernel: correlation of input with d_output
//
// References:
//   - "A guide to convolution arithmetic for deep learning" (Dumoulin & Visin, 2016)
type Conv3DOp struct {
	input   *tensor.RawTensor
	kernel  *tensor.RawTensor
	output  *tensor.RawTensor
	stride  tensor.Dims3
	padding tensor.Dims3
}

// NewConv3DOp creates a new Conv3D operation.
func NewConv3DOp(input, kernel, output *tensor.RawTensor, stride, padding tensor.Dims3) *Conv3DOp {
	return &Conv3DOp{
		input:   input,
		kernel:  kernel,
		output:  output,
		stride:  stride,
		padding: padding,
	}
}

// Inputs returns the input tensors [input, kernel].
func (op *Conv3DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

// Output returns the output tensor.
func (op *Conv3DOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes gradients for Conv3D.
//
// Given:
//   - outputGrad: ∂L/∂output [N, C_out, T_out, H_out, W_out]
//
// Compute:
//   - inputGrad:  ∂L/∂input  [N, C_in, T, H, W]
//   - kernelGrad: ∂L/∂kernel [C_out, C_in, K_t, K_h, K_w]
func (op *Conv3DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.Conv3DInputBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)
	kernelGrad := backend.Conv3DKernelBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)

	return []*tensor.RawTensor{inputGrad, kernelGrad}
}

// ConvTranspose3DOp records a 3D transposed convolution for autodiff.
//
// The input gradient of a transposed convolution is a regular convolution
// of the output gradient; the backend provides both gradient kernels.
type ConvTranspose3DOp struct {
	input   *tensor.RawTensor
	kernel  *tensor.RawTensor
	output  *tensor.RawTensor
	stride  tensor.Dims3
	padding tensor.Dims3
}

// NewConvTranspose3DOp creates a new ConvTranspose3D operation.
func NewConvTranspose3DOp(input, kernel, output *tensor.RawTensor, stride, padding tensor.Dims3) *ConvTranspose3DOp {
	return &ConvTranspose3DOp{
		input:   input,
		kernel:  kernel,
		output:  output,
		stride:  stride,
		padding: padding,
	}
}

// Inputs returns the input tensors [input, kernel].
func (op *ConvTranspose3DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

// Output returns the output tensor.
func (op *ConvTranspose3DOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes gradients for ConvTranspose3D.
func (op *ConvTranspose3DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.ConvTranspose3DInputBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)
	kernelGrad := backend.ConvTranspose3DKernelBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)

	return []*tensor.RawTensor{inputGrad, kernelGrad}
}
