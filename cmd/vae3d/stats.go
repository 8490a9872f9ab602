package main

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// summary describes the distribution of a tensor's elements.
type summary struct {
	Mean, Std, Min, Max float64
}

func summarize(values []float32) summary {
	if len(values) == 0 {
		return summary{}
	}
	x := make([]float64, len(values))
	for i, v := range values {
		x[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	return summary{Mean: mean, Std: std, Min: floats.Min(x), Max: floats.Max(x)}
}

// latentSummary reports the posterior means and standard deviations
// exp(0.5*logvar) of one forward pass.
func latentSummary(mean, logvar []float32) (mu, sigma summary) {
	std := make([]float32, len(logvar))
	for i, lv := range logvar {
		std[i] = float32(math.Exp(0.5 * float64(lv)))
	}
	return summarize(mean), summarize(std)
}
