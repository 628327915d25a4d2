package split

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

// Server evaluates the weighted sums of one layer on an encrypted input. It only
// holds public evaluation keys.
type Server struct {
	params  hefloat.Parameters
	eval    *hefloat.Evaluator
	columns []*rlwe.Plaintext // column j holds the weights entering neuron j
	span    int
}

// NewServer encodes the weights of layer. Later changes to layer are not seen.
func NewServer(params hefloat.Parameters, evk *rlwe.MemEvaluationKeySet, layer *m.Layer) (*Server, error) {
	in, out := layer.Dims()
	if in > slots(params) {
		return nil, errors.Wrapf(m.ErrDimensionMismatch, "layer input %d does not fit %d slots", in, slots(params))
	}

	encoder := hefloat.NewEncoder(params)
	columns := make([]*rlwe.Plaintext, out)
	for j := range columns {
		pt := hefloat.NewPlaintext(params, params.MaxLevel())
		if err := encoder.Encode(m.GetColumn(layer.Weights(), j), pt); err != nil {
			return nil, errors.Wrapf(err, "encode column %d", j)
		}
		columns[j] = pt
	}

	return &Server{
		params:  params,
		eval:    hefloat.NewEvaluator(params, evk),
		columns: columns,
		span:    nextPow2(in),
	}, nil
}

// WeightedSums multiplies the encrypted input by every weight column and folds the
// products with rotations, so slot 0 of result j holds Σ_i w[i][j]*x[i].
func (s *Server) WeightedSums(ct *rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	sums := make([]*rlwe.Ciphertext, len(s.columns))
	for j, col := range s.columns {
		prod, err := s.eval.MulNew(ct, col)
		if err != nil {
			return nil, errors.Wrapf(err, "neuron %d", j)
		}
		for rot := 1; rot < s.span; rot <<= 1 {
			shifted, err := s.eval.RotateNew(prod, rot)
			if err != nil {
				return nil, errors.Wrapf(err, "neuron %d, rotation %d", j, rot)
			}
			if err := s.eval.Add(prod, shifted, prod); err != nil {
				return nil, errors.Wrapf(err, "neuron %d, rotation %d", j, rot)
			}
		}
		sums[j] = prod
	}
	return sums, nil
}

// Serve answers input requests on p until the client sends MsgDone. Failures on a
// request are reported to the client and end the loop.
func (s *Server) Serve(p *Protocol) error {
	for {
		payload, err := p.ReceiveInput()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "receive input")
		}

		out, err := s.answer(payload.Ciphertext)
		if err != nil {
			if sendErr := p.SendError(err); sendErr != nil {
				return errors.Wrap(sendErr, "send error")
			}
			return err
		}
		if err := p.SendSums(payload.RequestID, out); err != nil {
			return errors.Wrap(err, "send sums")
		}
	}
}

func (s *Server) answer(ctBytes []byte) ([][]byte, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(ctBytes); err != nil {
		return nil, errors.Wrap(err, "unmarshal input")
	}
	sums, err := s.WeightedSums(ct)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(sums))
	for j, sum := range sums {
		if out[j], err = sum.MarshalBinary(); err != nil {
			return nil, errors.Wrapf(err, "marshal sum %d", j)
		}
	}
	return out, nil
}

func unmarshalCiphertexts(data [][]byte) ([]*rlwe.Ciphertext, error) {
	cts := make([]*rlwe.Ciphertext, len(data))
	for i, b := range data {
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(b); err != nil {
			return nil, errors.Wrapf(err, "unmarshal sum %d", i)
		}
		cts[i] = ct
	}
	return cts, nil
}
