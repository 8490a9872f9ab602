package tensor

// Backend defines the kernels a compute backend must provide for the VAE.
//
// Kernels never modify their inputs and always return freshly allocated
// results; shape violations panic with a descriptive message.
//
// Implementations:
//   - cpu.CPUBackend: pure Go kernels with intra-op parallelism
//   - autodiff.AutodiffBackend: decorator recording operations for backprop
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar).
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor // 1/sqrt(x)

	// LeakyReLU computes x for x > 0 and slope*x otherwise.
	LeakyReLU(x *RawTensor, slope float32) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor // total sum, scalar result
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// Conv3D convolves input [N, Ci, T, H, W] with kernel [Co, Ci, kt, kh, kw].
	Conv3D(input, kernel *RawTensor, stride, padding Dims3) *RawTensor
	// Conv3DInputBackward returns dL/dinput for Conv3D.
	Conv3DInputBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor
	// Conv3DKernelBackward returns dL/dkernel for Conv3D.
	Conv3DKernelBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor

	// ConvTranspose3D applies a fractionally-strided convolution of input
	// [N, Ci, T, H, W] with kernel [Ci, Co, kt, kh, kw]. Each output extent is
	// (in-1)*stride - 2*padding + k + outputPadding.
	ConvTranspose3D(input, kernel *RawTensor, stride, padding, outputPadding Dims3) *RawTensor
	// ConvTranspose3DInputBackward returns dL/dinput for ConvTranspose3D.
	ConvTranspose3DInputBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor
	// ConvTranspose3DKernelBackward returns dL/dkernel for ConvTranspose3D.
	ConvTranspose3DKernelBackward(input, kernel, grad *RawTensor, stride, padding Dims3) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
