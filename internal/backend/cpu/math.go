package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/vae3d/internal/parallel"
	"github.com/born-ml/vae3d/internal/tensor"
)

// MulScalar multiplies every element of x by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat32("mulscalar", scalar)
	return cpu.unary("mulscalar", x, func(v float32) float32 { return v * s })
}

// AddScalar adds scalar to every element of x.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat32("addscalar", scalar)
	return cpu.unary("addscalar", x, func(v float32) float32 { return v + s })
}

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, func(v float32) float32 {
		return float32(math.Exp(float64(v)))
	})
}

// Abs computes |x| element-wise.
func (cpu *CPUBackend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("abs", x, func(v float32) float32 {
		return float32(math.Abs(float64(v)))
	})
}

// Rsqrt computes 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, func(v float32) float32 {
		return float32(1 / math.Sqrt(float64(v)))
	})
}

// LeakyReLU computes x for x > 0 and slope*x otherwise.
func (cpu *CPUBackend) LeakyReLU(x *tensor.RawTensor, slope float32) *tensor.RawTensor {
	return cpu.unary("leakyrelu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return slope * v
	})
}

func (cpu *CPUBackend) unary(name string, x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	requireFloat32(name, x)

	result := tensor.MustNewRaw(x.Shape(), tensor.Float32, cpu.device)
	in, out := x.AsFloat32(), result.AsFloat32()
	parallel.For(len(out), func(i int) {
		out[i] = f(in[i])
	}, cpu.light)
	return result
}

func toFloat32(op string, scalar any) float32 {
	switch v := scalar.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
