package m

import "math"

// The sigmoid output is squeezed into (outputFloor, outputFloor+outputScale) so
// activations never reach 0 or 1, where o*(1-o) vanishes.
const (
	outputScale = 0.998
	outputFloor = 0.001
)

func sigmoid(sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sum))
}

// Activate maps a neuron's weighted input sum to its output.
func Activate(sum float64) float64 {
	return outputScale*sigmoid(sum) + outputFloor
}

// deactivate is the delta factor o*(1-o), taken on the rescaled output o.
func deactivate(o float64) float64 {
	return o * (1 - o)
}
