package m

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Layer is the weight matrix of one fully connected layer. Row i holds the
// weights leaving input neuron i, column j the weights entering output neuron j.
type Layer struct {
	weights *mat.Dense
}

// NewLayer allocates an inputDim x outputDim layer with every weight set to zero.
func NewLayer(inputDim, outputDim int) (*Layer, error) {
	if inputDim <= 0 || outputDim <= 0 {
		return nil, errors.Wrapf(ErrInvalidTopology, "layer %dx%d", inputDim, outputDim)
	}
	return &Layer{weights: mat.NewDense(inputDim, outputDim, nil)}, nil
}

// Randomize draws every weight independently from U[-0.5, 0.5).
func (l *Layer) Randomize(src rand.Source) {
	r, c := l.weights.Dims()
	copy(l.weights.RawMatrix().Data, randomArray(r*c, src))
}

func (l *Layer) Dims() (int, int) {
	return l.weights.Dims()
}

func (l *Layer) InputDim() int {
	r, _ := l.weights.Dims()
	return r
}

func (l *Layer) OutputDim() int {
	_, c := l.weights.Dims()
	return c
}

// At returns the weight connecting input i to output j.
func (l *Layer) At(i, j int) (float64, error) {
	if err := l.check(i, j); err != nil {
		return 0, err
	}
	return l.weights.At(i, j), nil
}

// Set overwrites the weight connecting input i to output j.
func (l *Layer) Set(i, j int, v float64) error {
	if err := l.check(i, j); err != nil {
		return err
	}
	l.weights.Set(i, j, v)
	return nil
}

// Weights exposes the matrix read-only.
func (l *Layer) Weights() mat.Matrix {
	return l.weights
}

func (l *Layer) check(i, j int) error {
	r, c := l.weights.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		return errors.Wrapf(ErrIndexOutOfBounds, "weight (%d, %d) of %dx%d layer", i, j, r, c)
	}
	return nil
}
