package m

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Model byte layout, all values little-endian:
//
//	int32    layer count L
//	int32    input size
//	int32    output size of each of the L layers
//	float64  weights of layer 0 row by row, then layer 1, ...
const (
	intSize   = 4
	floatSize = 8
)

var byteOrder = binary.LittleEndian

// EncodedSize is the length of Encode(net).
func EncodedSize(net *Network) int {
	size := intSize * (len(net.layers) + 2)
	for _, l := range net.layers {
		r, c := l.Dims()
		size += floatSize * r * c
	}
	return size
}

// Encode serializes the topology and every weight of net.
func Encode(net *Network) []byte {
	buf := make([]byte, EncodedSize(net))
	pos := 0
	putInt := func(v int) {
		byteOrder.PutUint32(buf[pos:], uint32(int32(v)))
		pos += intSize
	}

	putInt(len(net.layers))
	putInt(net.InputDim())
	for _, l := range net.layers {
		putInt(l.OutputDim())
	}
	for _, l := range net.layers {
		for _, w := range l.weights.RawMatrix().Data {
			byteOrder.PutUint64(buf[pos:], math.Float64bits(w))
			pos += floatSize
		}
	}
	return buf
}

// Decode rebuilds a network from the output of Encode. Any header or length
// inconsistency yields ErrCorruptModel and no network.
func Decode(data []byte) (*Network, error) {
	if len(data) < 2*intSize {
		return nil, errors.Wrapf(ErrCorruptModel, "%d bytes is shorter than the header", len(data))
	}
	count := readInt(data, 0)
	if count <= 0 {
		return nil, errors.Wrapf(ErrCorruptModel, "layer count %d", count)
	}
	headerSize := int64(intSize) * (int64(count) + 2)
	if int64(len(data)) < headerSize {
		return nil, errors.Wrapf(ErrCorruptModel, "header of %d layers needs %d bytes, got %d",
			count, headerSize, len(data))
	}

	// dims[0] is the input size, dims[k+1] the output size of layer k
	dims := make([]int, int(count)+1)
	for i := range dims {
		d := readInt(data, intSize*(i+1))
		if d <= 0 {
			return nil, errors.Wrapf(ErrCorruptModel, "dimension %d is %d", i, d)
		}
		dims[i] = int(d)
	}

	size := headerSize
	for k := 0; k < int(count); k++ {
		weights := int64(dims[k]) * int64(dims[k+1])
		if weights > (int64(len(data))-size)/floatSize {
			return nil, errors.Wrapf(ErrCorruptModel, "layer %d (%dx%d) runs past the end of %d bytes",
				k, dims[k], dims[k+1], len(data))
		}
		size += floatSize * weights
	}
	if size != int64(len(data)) {
		return nil, errors.Wrapf(ErrCorruptModel, "expected %d bytes, got %d", size, len(data))
	}

	layers := make([]*Layer, count)
	pos := int(headerSize)
	for k := range layers {
		l, err := NewLayer(dims[k], dims[k+1])
		if err != nil {
			return nil, err
		}
		raw := l.weights.RawMatrix().Data
		for i := range raw {
			raw[i] = math.Float64frombits(byteOrder.Uint64(data[pos:]))
			pos += floatSize
		}
		layers[k] = l
	}
	return newNetwork(layers), nil
}

func readInt(data []byte, pos int) int32 {
	return int32(byteOrder.Uint32(data[pos:]))
}

func (net *Network) MarshalBinary() ([]byte, error) {
	return Encode(net), nil
}

func (net *Network) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*net = *decoded
	return nil
}

// WriteTo writes the encoded network to w.
func (net *Network) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(Encode(net))
	return int64(n), err
}

// ReadNetwork decodes a network from everything r yields.
func ReadNetwork(r io.Reader) (*Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading model")
	}
	return Decode(data)
}

// Save writes the encoded network to path, replacing any existing file.
func (net *Network) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create model file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close model file")
		}
	}()

	if _, err = net.WriteTo(f); err != nil {
		return errors.Wrapf(err, "write model to %s", path)
	}
	return nil
}

// Load reads a network saved with Save.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open model file")
	}
	defer f.Close()

	net, err := ReadNetwork(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return net, nil
}
