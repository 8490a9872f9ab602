package nn

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/vae3d/internal/tensor"
)

// Init fills a layer's weight and bias in place.
//
// fanIn and fanOut are the receptive-field scaled channel counts the
// initializer should assume. bias may be nil.
type Init func(weight, bias []float32, fanIn, fanOut int, rng *rand.Rand)

// DefaultConvInit draws weight and bias from U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
//
// This matches the stock initialization of convolution layers in common
// frameworks (Kaiming uniform with a = sqrt(5)), so a freshly built model
// behaves like one whose parameters were never explicitly reset.
func DefaultConvInit(weight, bias []float32, fanIn, _ int, rng *rand.Rand) {
	bound := 1 / math.Sqrt(float64(fanIn))
	fillUniform(weight, bound, rng)
	fillUniform(bias, bound, rng)
}

// XavierNormal (Glorot normal) initialization for weights:
//
//	W ~ N(0, 2/(fan_in + fan_out))
//
// Biases are zeroed.
func XavierNormal(weight, bias []float32, fanIn, fanOut int, rng *rand.Rand) {
	std := math.Sqrt(2.0 / float64(fanIn+fanOut))
	for i := range weight {
		weight[i] = float32(rng.NormFloat64() * std)
	}
	for i := range bias {
		bias[i] = 0
	}
}

// Xavier (Glorot) uniform initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Biases are zeroed.
func Xavier(weight, bias []float32, fanIn, fanOut int, rng *rand.Rand) {
	fillUniform(weight, math.Sqrt(6.0/float64(fanIn+fanOut)), rng)
	for i := range bias {
		bias[i] = 0
	}
}

// InitByName resolves an initializer identifier as used in configuration
// files. The empty string selects DefaultConvInit.
func InitByName(name string) (Init, bool) {
	switch name {
	case "", "default":
		return DefaultConvInit, true
	case "xavier", "xavier_normal":
		return XavierNormal, true
	case "xavier_uniform":
		return Xavier, true
	default:
		return nil, false
	}
}

func fillUniform(data []float32, bound float64, rng *rand.Rand) {
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
}

// newConvParams allocates and initializes a weight of weightShape and a bias
// of length biasLen on backend.
func newConvParams[B tensor.Backend](
	name string,
	weightShape tensor.Shape,
	biasLen, fanIn, fanOut int,
	init Init,
	rng *rand.Rand,
	backend B,
) (weight, bias *Parameter[B]) {
	if init == nil {
		init = DefaultConvInit
	}
	if rng == nil {
		rng = tensor.NewRand(0)
	}

	w := tensor.Zeros[float32](weightShape, backend)
	b := tensor.Zeros[float32](tensor.Shape{biasLen}, backend)
	init(w.Data(), b.Data(), fanIn, fanOut, rng)

	return NewParameter(name+".weight", w), NewParameter(name+".bias", b)
}
