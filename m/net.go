package m

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config describes a network to build from scratch.
type Config struct {
	InputNum   int
	LayerSizes []int // output size of every layer, last one is the network output

	// Source feeds weight initialization. When nil, rand.NewSource(Seed) is used,
	// so equal seeds give equal networks.
	Source rand.Source
	Seed   uint64
}

// Network is a fully connected sigmoid network without bias weights.
//
// The network owns scratch buffers that Forward, Error and Train overwrite, so a
// Network must not be used from several goroutines at once.
type Network struct {
	layers  []*Layer
	outputs []*mat.VecDense // len(layers)+1, outputs[0] is the input
	deltas  []*mat.VecDense // len(layers)
}

func NewNetwork(c Config) (*Network, error) {
	if len(c.LayerSizes) == 0 {
		return nil, errors.Wrap(ErrInvalidTopology, "no layers")
	}
	if c.InputNum <= 0 {
		return nil, errors.Wrapf(ErrInvalidTopology, "input size %d", c.InputNum)
	}

	src := c.Source
	if src == nil {
		src = rand.NewSource(c.Seed)
	}

	layers := make([]*Layer, len(c.LayerSizes))
	in := c.InputNum
	for i, out := range c.LayerSizes {
		l, err := NewLayer(in, out)
		if err != nil {
			return nil, errors.WithMessagef(err, "layer %d", i)
		}
		l.Randomize(src)
		layers[i] = l
		in = out
	}
	return newNetwork(layers), nil
}

// NewNetworkFromLayers assembles a network from existing layers. The output size
// of every layer must equal the input size of the next one. The layers are used
// directly, not copied.
func NewNetworkFromLayers(layers []*Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, errors.Wrap(ErrInvalidTopology, "no layers")
	}
	for k, l := range layers {
		if l == nil {
			return nil, errors.Wrapf(ErrInvalidTopology, "layer %d is nil", k)
		}
		if k > 0 && layers[k-1].OutputDim() != l.InputDim() {
			return nil, errors.Wrapf(ErrInvalidTopology, "layer %d takes %d inputs, previous layer gives %d",
				k, l.InputDim(), layers[k-1].OutputDim())
		}
	}
	return newNetwork(append([]*Layer(nil), layers...)), nil
}

// newNetwork allocates the activation buffers for an already chained set of layers.
func newNetwork(layers []*Layer) *Network {
	net := &Network{
		layers:  layers,
		outputs: make([]*mat.VecDense, len(layers)+1),
		deltas:  make([]*mat.VecDense, len(layers)),
	}
	net.outputs[0] = mat.NewVecDense(layers[0].InputDim(), nil)
	for i, l := range layers {
		net.outputs[i+1] = mat.NewVecDense(l.OutputDim(), nil)
		net.deltas[i] = mat.NewVecDense(l.OutputDim(), nil)
	}
	return net
}

func (net *Network) NumLayers() int {
	return len(net.layers)
}

func (net *Network) lastIndex() int {
	return len(net.layers)
}

// Layer returns layer k, or nil when k is out of range.
func (net *Network) Layer(k int) *Layer {
	if k < 0 || k >= len(net.layers) {
		return nil
	}
	return net.layers[k]
}

func (net *Network) InputDim() int {
	return net.layers[0].InputDim()
}

func (net *Network) OutputDim() int {
	return net.layers[len(net.layers)-1].OutputDim()
}

// Topology returns the input size followed by every layer's output size.
func (net *Network) Topology() []int {
	t := make([]int, 0, len(net.layers)+1)
	t = append(t, net.InputDim())
	for _, l := range net.layers {
		t = append(t, l.OutputDim())
	}
	return t
}

// Forward runs the input through every layer and returns a copy of the output.
func (net *Network) Forward(input []float64) ([]float64, error) {
	return net.ForwardTo(input, net.lastIndex())
}

// ForwardTo runs only the first layer layers and returns a copy of their output.
// ForwardTo(x, 0) returns x itself.
func (net *Network) ForwardTo(input []float64, layer int) ([]float64, error) {
	if err := checkLen("input", len(input), net.InputDim()); err != nil {
		return nil, err
	}
	if layer < 0 || layer > net.lastIndex() {
		return nil, errors.Wrapf(ErrIndexOutOfBounds, "layer %d of %d", layer, len(net.layers))
	}
	copy(net.outputs[0].RawVector().Data, input)
	net.feedForward(0, layer)
	return copyVec(net.outputs[layer]), nil
}

// ForwardFrom takes the outputs of layer-1 (or the input, for layer 0) as given and
// runs the remaining layers.
func (net *Network) ForwardFrom(layer int, activations []float64) ([]float64, error) {
	if layer < 0 || layer > net.lastIndex() {
		return nil, errors.Wrapf(ErrIndexOutOfBounds, "layer %d of %d", layer, len(net.layers))
	}
	if err := checkLen("activations", len(activations), net.outputs[layer].Len()); err != nil {
		return nil, err
	}
	copy(net.outputs[layer].RawVector().Data, activations)
	net.feedForward(layer, net.lastIndex())
	return copyVec(net.outputs[net.lastIndex()]), nil
}

// feedForward fills outputs[from+1..to] from outputs[from].
func (net *Network) feedForward(from, to int) {
	for k := from; k < to; k++ {
		out := net.outputs[k+1]
		out.MulVec(net.layers[k].weights.T(), net.outputs[k])
		data := out.RawVector().Data
		for j, s := range data {
			data[j] = Activate(s)
		}
	}
}

// Error runs a forward pass and returns half the squared distance between the
// output and target.
func (net *Network) Error(input, target []float64) (float64, error) {
	if err := checkLen("target", len(target), net.OutputDim()); err != nil {
		return 0, err
	}
	if _, err := net.Forward(input); err != nil {
		return 0, err
	}
	return net.outputError(target), nil
}

func (net *Network) outputError(target []float64) float64 {
	diff := make([]float64, len(target))
	floats.SubTo(diff, target, net.outputs[net.lastIndex()].RawVector().Data)
	return 0.5 * floats.Dot(diff, diff)
}

// Train performs one online backpropagation step on a single example and returns
// the error of the forward pass that preceded the weight update.
func (net *Network) Train(input, target []float64, learningRate float64) (float64, error) {
	if err := checkLen("target", len(target), net.OutputDim()); err != nil {
		return 0, err
	}
	if _, err := net.Forward(input); err != nil {
		return 0, err
	}
	kErr := net.outputError(target)
	net.backpropagate(target, learningRate)
	return kErr, nil
}

func (net *Network) backpropagate(target []float64, learningRate float64) {
	last := len(net.layers) - 1
	final := net.outputs[last+1].RawVector().Data
	delta := net.deltas[last].RawVector().Data
	for j, o := range final {
		delta[j] = (target[j] - o) * deactivate(o)
	}

	for k := last; k >= 0; k-- {
		w := net.layers[k].weights
		w.RankOne(w, learningRate, net.outputs[k], net.deltas[k])
		if k == 0 {
			break
		}
		// delta of layer k-1, through the already updated weights of layer k
		prev := net.deltas[k-1]
		prev.MulVec(w, net.deltas[k])
		o := net.outputs[k].RawVector().Data
		d := prev.RawVector().Data
		for j := range d {
			d[j] *= deactivate(o[j])
		}
	}
}

// TrainLines makes one online pass over lines in order and returns the summed
// per-example error.
func (net *Network) TrainLines(lines Lines, learningRate float64) (float64, error) {
	var total float64
	for i, line := range lines {
		e, err := net.Train(line.Inputs, line.Targets, learningRate)
		if err != nil {
			return total, errors.WithMessagef(err, "line %d", i+1)
		}
		total += e
	}
	return total, nil
}

// TotalError sums Error over lines without touching the weights.
func (net *Network) TotalError(lines Lines) (float64, error) {
	var total float64
	for i, line := range lines {
		e, err := net.Error(line.Inputs, line.Targets)
		if err != nil {
			return 0, errors.WithMessagef(err, "line %d", i+1)
		}
		total += e
	}
	return total, nil
}

func copyVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	copy(out, v.RawVector().Data)
	return out
}
