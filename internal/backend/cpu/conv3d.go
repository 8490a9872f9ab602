package cpu

import (
	"fmt"

	"github.com/born-ml/vae3d/internal/parallel"
	"github.com/born-ml/vae3d/internal/tensor"
)

// Conv3D performs a strided, zero-padded 3D convolution.
//
// Input shape:  [N, C_in, T, H, W]
// Kernel shape: [C_out, C_in, K_t, K_h, K_w]
// Output shape: [N, C_out, T_out, H_out, W_out]
//
// Where, per axis: out = (in + 2*padding - k) / stride + 1.
//
// A 3x3x3 kernel with padding 1 and stride (1, 2, 2) halves height and width
// (rounding up) while keeping the temporal extent.
func (cpu *CPUBackend) Conv3D(input, kernel *tensor.RawTensor, stride, padding tensor.Dims3) *tensor.RawTensor {
	g := newConvGeometry("conv3d", input, kernel, stride, padding)
	if g.inC != g.kIn {
		panic(fmt.Sprintf("conv3d: input channels %d != kernel channels %d", g.inC, g.kIn))
	}

	var outVol tensor.Dims3
	for a := 0; a < 3; a++ {
		outVol[a] = (g.inVol[a]+2*padding[a]-g.k[a])/stride[a] + 1
		if outVol[a] <= 0 {
			panic(fmt.Sprintf("conv3d: invalid output extent %v for input %v (check stride/padding)", outVol, g.inVol))
		}
	}

	output := tensor.MustNewRaw(tensor.Shape{g.n, g.kOut, outVol[0], outVol[1], outVol[2]}, tensor.Float32, cpu.device)
	cpu.convForward(input, kernel, output, stride, padding)
	return output
}

// Conv3DInputBackward computes dL/dinput of Conv3D given dL/doutput.
func (cpu *CPUBackend) Conv3DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding tensor.Dims3) *tensor.RawTensor {
	requireFloat32("conv3d backward", input, kernel, grad)
	result := tensor.MustNewRaw(input.Shape(), tensor.Float32, cpu.device)
	cpu.convInputGrad(grad, kernel, result, stride, padding)
	return result
}

// Conv3DKernelBackward computes dL/dkernel of Conv3D given dL/doutput.
func (cpu *CPUBackend) Conv3DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding tensor.Dims3) *tensor.RawTensor {
	requireFloat32("conv3d backward", input, kernel, grad)
	result := tensor.MustNewRaw(kernel.Shape(), tensor.Float32, cpu.device)
	cpu.convKernelGrad(input, grad, result, stride, padding)
	return result
}

// ConvTranspose3D performs a 3D transposed (fractionally-strided) convolution.
//
// Input shape:  [N, C_in, T, H, W]
// Kernel shape: [C_in, C_out, K_t, K_h, K_w]
// Output shape: [N, C_out, T_out, H_out, W_out]
//
// Where, per axis: out = (in - 1) * stride - 2*padding + k + outputPadding.
//
// Transposed convolution is the input-gradient of Conv3D, so it reuses that
// kernel with the weight read as [C_in, C_out] = [conv C_out, conv C_in].
// With k=3, padding=1 and outputPadding=stride-1, a stride-s ConvTranspose3D
// restores exactly the extent a stride-s Conv3D removed.
func (cpu *CPUBackend) ConvTranspose3D(input, kernel *tensor.RawTensor, stride, padding, outputPadding tensor.Dims3) *tensor.RawTensor {
	g := newConvGeometry("convtranspose3d", input, kernel, stride, padding)
	if g.inC != g.kOut {
		panic(fmt.Sprintf("convtranspose3d: input channels %d != kernel channels %d", g.inC, g.kOut))
	}

	var outVol tensor.Dims3
	for a := 0; a < 3; a++ {
		if outputPadding[a] < 0 || outputPadding[a] >= stride[a] {
			panic(fmt.Sprintf("convtranspose3d: output padding %v must be smaller than stride %v", outputPadding, stride))
		}
		outVol[a] = (g.inVol[a]-1)*stride[a] - 2*padding[a] + g.k[a] + outputPadding[a]
		if outVol[a] <= 0 {
			panic(fmt.Sprintf("convtranspose3d: invalid output extent %v for input %v", outVol, g.inVol))
		}
	}

	output := tensor.MustNewRaw(tensor.Shape{g.n, g.kIn, outVol[0], outVol[1], outVol[2]}, tensor.Float32, cpu.device)
	cpu.convInputGrad(input, kernel, output, stride, padding)
	return output
}

// ConvTranspose3DInputBackward computes dL/dinput of ConvTranspose3D, which is
// a regular Conv3D of the output gradient.
func (cpu *CPUBackend) ConvTranspose3DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding tensor.Dims3) *tensor.RawTensor {
	requireFloat32("convtranspose3d backward", input, kernel, grad)
	result := tensor.MustNewRaw(input.Shape(), tensor.Float32, cpu.device)
	cpu.convForward(grad, kernel, result, stride, padding)
	return result
}

// ConvTranspose3DKernelBackward computes dL/dkernel of ConvTranspose3D.
func (cpu *CPUBackend) ConvTranspose3DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding tensor.Dims3) *tensor.RawTensor {
	requireFloat32("convtranspose3d backward", input, kernel, grad)
	result := tensor.MustNewRaw(kernel.Shape(), tensor.Float32, cpu.device)
	cpu.convKernelGrad(grad, input, result, stride, padding)
	return result
}

// convGeometry holds the validated dimensions of a convolution call.
type convGeometry struct {
	n, inC    int
	inVol     tensor.Dims3
	kOut, kIn int
	k         tensor.Dims3
}

func newConvGeometry(op string, input, kernel *tensor.RawTensor, stride, padding tensor.Dims3) convGeometry {
	requireFloat32(op, input, kernel)

	in, ks := input.Shape(), kernel.Shape()
	if len(in) != 5 {
		panic(fmt.Sprintf("%s: input must be 5D [N,C,T,H,W], got %dD", op, len(in)))
	}
	if len(ks) != 5 {
		panic(fmt.Sprintf("%s: kernel must be 5D, got %dD", op, len(ks)))
	}
	for a := 0; a < 3; a++ {
		if stride[a] <= 0 {
			panic(fmt.Sprintf("%s: invalid stride %v", op, stride))
		}
		if padding[a] < 0 {
			panic(fmt.Sprintf("%s: invalid padding %v", op, padding))
		}
	}

	return convGeometry{
		n:     in[0],
		inC:   in[1],
		inVol: tensor.Dims3{in[2], in[3], in[4]},
		kOut:  ks[0],
		kIn:   ks[1],
		k:     tensor.Dims3{ks[2], ks[3], ks[4]},
	}
}

// convForward computes out[n,o,p] = sum_{c,k} x[n,c,p*s-pad+k] * w[o,c,k].
//
// Extents are taken from the tensors: x [N,C,...], w [O,C,...], out [N,O,...].
func (cpu *CPUBackend) convForward(x, w, out *tensor.RawTensor, stride, padding tensor.Dims3) {
	xs, ws, os := x.Shape(), w.Shape(), out.Shape()
	n, c := xs[0], xs[1]
	o := ws[0]
	if ws[1] != c || os[1] != o {
		panic(fmt.Sprintf("conv3d: channel mismatch input=%v kernel=%v out=%v", xs, ws, os))
	}
	it, ih, iw := xs[2], xs[3], xs[4]
	kt, kh, kw := ws[2], ws[3], ws[4]
	ot, oh, ow := os[2], os[3], os[4]

	xd, wd, od := x.AsFloat32(), w.AsFloat32(), out.AsFloat32()
	inVol, outVol, kVol := it*ih*iw, ot*oh*ow, kt*kh*kw

	parallel.ForBatch(n, o, func(b, oc int) {
		dst := od[(b*o+oc)*outVol : (b*o+oc+1)*outVol]
		for pt := 0; pt < ot; pt++ {
			for ph := 0; ph < oh; ph++ {
				for pw := 0; pw < ow; pw++ {
					var acc float32
					for ic := 0; ic < c; ic++ {
						src := xd[(b*c+ic)*inVol:]
						wk := wd[(oc*c+ic)*kVol:]
						for a := 0; a < kt; a++ {
							t := pt*stride[0] - padding[0] + a
							if t < 0 || t >= it {
								continue
							}
							for bb := 0; bb < kh; bb++ {
								h := ph*stride[1] - padding[1] + bb
								if h < 0 || h >= ih {
									continue
								}
								row := src[(t*ih+h)*iw:]
								wrow := wk[(a*kh+bb)*kw:]
								for cc := 0; cc < kw; cc++ {
									ww := pw*stride[2] - padding[2] + cc
									if ww < 0 || ww >= iw {
										continue
									}
									acc += row[ww] * wrow[cc]
								}
							}
						}
					}
					dst[(pt*oh+ph)*ow+pw] = acc
				}
			}
		}
	}, cpu.heavy)
}

// convInputGrad scatters g back onto the input grid of a convolution:
//
//	out[n,c,q] = sum_{o,k : q = p*s-pad+k} g[n,o,p] * w[o,c,k]
//
// g [N,O,...] and w [O,C,...] are read, out [N,C,...] is written. Each
// (n, c) plane is owned by one work item, so the gather form is used.
func (cpu *CPUBackend) convInputGrad(g, w, out *tensor.RawTensor, stride, padding tensor.Dims3) {
	gs, ws, os := g.Shape(), w.Shape(), out.Shape()
	n, o := gs[0], gs[1]
	c := ws[1]
	if os[1] != c || ws[0] != o {
		panic(fmt.Sprintf("conv3d backward: channel mismatch grad=%v kernel=%v out=%v", gs, ws, os))
	}
	gt, gh, gw := gs[2], gs[3], gs[4]
	kt, kh, kw := ws[2], ws[3], ws[4]
	qt, qh, qw := os[2], os[3], os[4]

	gd, wd, od := g.AsFloat32(), w.AsFloat32(), out.AsFloat32()
	gVol, qVol, kVol := gt*gh*gw, qt*qh*qw, kt*kh*kw

	parallel.ForBatch(n, c, func(b, ic int) {
		dst := od[(b*c+ic)*qVol : (b*c+ic+1)*qVol]
		for t := 0; t < qt; t++ {
			for h := 0; h < qh; h++ {
				for x := 0; x < qw; x++ {
					var acc float32
					for oc := 0; oc < o; oc++ {
						src := gd[(b*o+oc)*gVol:]
						wk := wd[(oc*c+ic)*kVol:]
						for a := 0; a < kt; a++ {
							pt, ok := sourceIndex(t, a, stride[0], padding[0], gt)
							if !ok {
								continue
							}
							for bb := 0; bb < kh; bb++ {
								ph, ok := sourceIndex(h, bb, stride[1], padding[1], gh)
								if !ok {
									continue
								}
								for cc := 0; cc < kw; cc++ {
									pw, ok := sourceIndex(x, cc, stride[2], padding[2], gw)
									if !ok {
										continue
									}
									acc += src[(pt*gh+ph)*gw+pw] * wk[(a*kh+bb)*kw+cc]
								}
							}
						}
					}
					dst[(t*qh+h)*qw+x] = acc
				}
			}
		}
	}, cpu.heavy)
}

// sourceIndex solves q = p*stride - pad + k for p and reports whether p is an
// integer inside [0, extent).
func sourceIndex(q, k, stride, pad, extent int) (int, bool) {
	num := q + pad - k
	if num < 0 || num%stride != 0 {
		return 0, false
	}
	p := num / stride
	return p, p < extent
}

// convKernelGrad computes out[o,c,k] = sum_{n,p} g[n,o,p] * x[n,c,p*s-pad+k].
//
// x [N,C,...] is the convolution input, g [N,O,...] the gradient on its
// output grid, out [O,C,...] the kernel gradient.
func (cpu *CPUBackend) convKernelGrad(x, g, out *tensor.RawTensor, stride, padding tensor.Dims3) {
	xs, gs, ks := x.Shape(), g.Shape(), out.Shape()
	n, c := xs[0], xs[1]
	o := gs[1]
	if ks[0] != o || ks[1] != c || gs[0] != n {
		panic(fmt.Sprintf("conv3d backward: shape mismatch input=%v grad=%v kernel=%v", xs, gs, ks))
	}
	it, ih, iw := xs[2], xs[3], xs[4]
	pt, ph, pw := gs[2], gs[3], gs[4]
	kt, kh, kw := ks[2], ks[3], ks[4]

	xd, gd, kd := x.AsFloat32(), g.AsFloat32(), out.AsFloat32()
	inVol, gVol, kVol := it*ih*iw, pt*ph*pw, kt*kh*kw

	parallel.ForBatch(o, c, func(oc, ic int) {
		dst := kd[(oc*c+ic)*kVol : (oc*c+ic+1)*kVol]
		for a := 0; a < kt; a++ {
			for bb := 0; bb < kh; bb++ {
				for cc := 0; cc < kw; cc++ {
					var acc float32
					for b := 0; b < n; b++ {
						src := xd[(b*c+ic)*inVol:]
						gsrc := gd[(b*o+oc)*gVol:]
						for t := 0; t < pt; t++ {
							st := t*stride[0] - padding[0] + a
							if st < 0 || st >= it {
								continue
							}
							for h := 0; h < ph; h++ {
								sh := h*stride[1] - padding[1] + bb
								if sh < 0 || sh >= ih {
									continue
								}
								for w := 0; w < pw; w++ {
									sw := w*stride[2] - padding[2] + cc
									if sw < 0 || sw >= iw {
										continue
									}
									acc += gsrc[(t*ph+h)*pw+w] * src[(st*ih+sh)*iw+sw]
								}
							}
						}
					}
					dst[(a*kh+bb)*kw+cc] = acc
				}
			}
		}
	}, cpu.heavy)
}
