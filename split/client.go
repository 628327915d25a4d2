package split

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

// DefaultParameters returns the CKKS parameters used by the CLIs: ring degree
// 2^14, two rescaling primes above a 45-bit base prime, 40-bit scale.
func DefaultParameters() (hefloat.Parameters, error) {
	return hefloat.NewParametersFromLiteral(hefloat.ParametersLiteral{
		LogN:            14,
		Q:               []uint64{0x200000008001, 0x400018001, 0x3fffd0001},
		P:               []uint64{0x7fffffd8001, 0x7fffffc8001},
		LogDefaultScale: 40,
	})
}

// Client owns the secret key. It encrypts inputs and decrypts the server's sums.
type Client struct {
	params    hefloat.Parameters
	encoder   *hefloat.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evk       *rlwe.MemEvaluationKeySet
	inputDim  int
}

// NewClient generates a fresh key pair plus the evaluation keys a server needs to
// sum inputDim slots.
func NewClient(params hefloat.Parameters, inputDim int) (*Client, error) {
	if inputDim <= 0 || inputDim > slots(params) {
		return nil, errors.Wrapf(m.ErrDimensionMismatch, "input size %d does not fit %d slots",
			inputDim, slots(params))
	}

	kgen := hefloat.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var galEls []uint64
	for rot := 1; rot < nextPow2(inputDim); rot <<= 1 {
		galEls = append(galEls, params.GaloisElement(rot))
	}
	evk := rlwe.NewMemEvaluationKeySet(rlk, kgen.GenGaloisKeysNew(galEls, sk)...)

	return &Client{
		params:    params,
		encoder:   hefloat.NewEncoder(params),
		encryptor: hefloat.NewEncryptor(params, pk),
		decryptor: hefloat.NewDecryptor(params, sk),
		evk:       evk,
		inputDim:  inputDim,
	}, nil
}

// EvaluationKeys are the public keys handed to the server.
func (c *Client) EvaluationKeys() *rlwe.MemEvaluationKeySet {
	return c.evk
}

func (c *Client) EncryptInput(x []float64) (*rlwe.Ciphertext, error) {
	if len(x) != c.inputDim {
		return nil, errors.Wrapf(m.ErrDimensionMismatch, "input has length %d, want %d", len(x), c.inputDim)
	}
	pt := hefloat.NewPlaintext(c.params, c.params.MaxLevel())
	if err := c.encoder.Encode(x, pt); err != nil {
		return nil, errors.Wrap(err, "encode input")
	}
	ct, err := c.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt input")
	}
	return ct, nil
}

// DecryptSums reads slot 0 of every ciphertext.
func (c *Client) DecryptSums(cts []*rlwe.Ciphertext) ([]float64, error) {
	sums := make([]float64, len(cts))
	values := make([]complex128, slots(c.params))
	for j, ct := range cts {
		pt := c.decryptor.DecryptNew(ct)
		if err := c.encoder.Decode(pt, values); err != nil {
			return nil, errors.Wrapf(err, "decode sum %d", j)
		}
		sums[j] = real(values[0])
	}
	return sums, nil
}

// Query sends x to a remote server over p and returns the decrypted weighted sums.
func (c *Client) Query(p *Protocol, requestID int, x []float64) ([]float64, error) {
	ct, err := c.EncryptInput(x)
	if err != nil {
		return nil, err
	}
	ctBytes, err := ct.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "marshal input")
	}
	if err := p.SendInput(requestID, ctBytes); err != nil {
		return nil, errors.Wrap(err, "send input")
	}

	payload, err := p.ReceiveSums()
	if err != nil {
		return nil, errors.Wrap(err, "receive sums")
	}
	if payload.RequestID != requestID {
		return nil, errors.Errorf("sums for request %d, want %d", payload.RequestID, requestID)
	}
	cts, err := unmarshalCiphertexts(payload.Ciphertexts)
	if err != nil {
		return nil, err
	}
	return c.DecryptSums(cts)
}

func slots(params hefloat.Parameters) int {
	return 1 << params.LogMaxSlots()
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
