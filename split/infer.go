package split

import (
	"github.com/pkg/errors"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

// Infer is Forward with the first layer evaluated under encryption: the client
// encrypts x, the server computes the first layer's sums, the client decrypts them,
// applies the activation and runs the remaining layers in the clear.
func Infer(net *m.Network, client *Client, server *Server, x []float64) ([]float64, error) {
	if len(x) != net.InputDim() {
		return nil, errors.Wrapf(m.ErrDimensionMismatch, "input has length %d, want %d", len(x), net.InputDim())
	}
	ct, err := client.EncryptInput(x)
	if err != nil {
		return nil, err
	}
	cts, err := server.WeightedSums(ct)
	if err != nil {
		return nil, errors.Wrap(err, "server")
	}
	sums, err := client.DecryptSums(cts)
	if err != nil {
		return nil, err
	}
	return Finish(net, sums)
}

// Finish applies the activation to decrypted first-layer sums and runs the rest of net.
func Finish(net *m.Network, sums []float64) ([]float64, error) {
	act := make([]float64, len(sums))
	for j, s := range sums {
		act[j] = m.Activate(s)
	}
	return net.ForwardFrom(1, act)
}
