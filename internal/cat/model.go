package cat

import "math"

// logisticClamp bounds the logistic input so math.Exp never overflows.
const logisticClamp = 500.0

// logistic computes 1 / (1 + e^-x) with x clamped to [-500, 500].
func logistic(x float64) float64 {
	x = clamp(x, -logisticClamp, logisticClamp)
	return 1.0 / (1.0 + math.Exp(-x))
}

// PCorrect is the 2PL response function.
// P(θ) = logistic(a · (θ - b))
func PCorrect(theta, a, b float64) float64 {
	return logistic(a * (theta - b))
}

// Information is the Fisher information of a 2PL item at θ.
// I(θ) = a² · P · (1 - P)
func Information(theta, a, b float64) float64 {
	p := PCorrect(theta, a, b)
	return a * a * p * (1 - p)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
