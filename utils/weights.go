package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/pkg/errors"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

const weightsVersion = "1"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"` // [input, output]
	Data  []float64 `json:"data"`  // row-major
}

// ModelWeights is a readable dump of a network. Model holds the binary encoding
// in base64 so the dump can be turned back into the exact same network.
type ModelWeights struct {
	Version string        `json:"version"`
	Input   int           `json:"input"`
	Layers  []*WeightData `json:"layers"`
	Model   string        `json:"model,omitempty"`
}

func layerName(k int) string {
	return fmt.Sprintf("layer%d", k)
}

// LayerToWeightData copies the weights of l.
func LayerToWeightData(name string, l *m.Layer) *WeightData {
	r, c := l.Dims()
	return &WeightData{
		Name:  name,
		Shape: []int{r, c},
		Data:  m.MatrixToVector(l.Weights()),
	}
}

// WeightDataToLayer builds a layer from weight data. The shape and data length
// are checked before anything is allocated.
func WeightDataToLayer(wd *WeightData) (*m.Layer, error) {
	if wd == nil {
		return nil, errors.Wrap(m.ErrCorruptModel, "missing layer")
	}
	if len(wd.Shape) != 2 {
		return nil, errors.Wrapf(m.ErrCorruptModel, "%s: shape %v is not 2-d", wd.Name, wd.Shape)
	}
	rows, cols := wd.Shape[0], wd.Shape[1]
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(m.ErrCorruptModel, "%s: shape %v", wd.Name, wd.Shape)
	}
	if rows > len(wd.Data)/cols || len(wd.Data) != rows*cols {
		return nil, errors.Wrapf(m.ErrCorruptModel, "%s: %d values for shape %v", wd.Name, len(wd.Data), wd.Shape)
	}
	l, err := m.NewLayer(rows, cols)
	if err != nil {
		return nil, errors.WithMessage(err, wd.Name)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if err := l.Set(i, j, wd.Data[i*cols+j]); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

// NetworkWeights dumps every layer of net.
func NetworkWeights(net *m.Network) *ModelWeights {
	mw := &ModelWeights{
		Version: weightsVersion,
		Input:   net.InputDim(),
		Model:   EncodeBytes(m.Encode(net)),
	}
	for k := 0; k < net.NumLayers(); k++ {
		mw.Layers = append(mw.Layers, LayerToWeightData(layerName(k), net.Layer(k)))
	}
	return mw
}

// Network rebuilds a network from the dump. The binary model is preferred when
// present; otherwise the layers are used. Input must match the network's input
// size, and layers given next to a model must hold the same weights.
func (mw *ModelWeights) Network() (*m.Network, error) {
	var net *m.Network
	var err error
	if mw.Model != "" {
		net, err = mw.decodeModel()
	} else {
		net, err = mw.buildLayers()
	}
	if err != nil {
		return nil, err
	}
	if mw.Input != net.InputDim() {
		return nil, errors.Wrapf(m.ErrCorruptModel, "input %d, first layer takes %d", mw.Input, net.InputDim())
	}
	return net, nil
}

func (mw *ModelWeights) decodeModel() (*m.Network, error) {
	data, err := DecodeBytes(mw.Model)
	if err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	net, err := m.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(mw.Layers) == 0 {
		return net, nil
	}
	if len(mw.Layers) != net.NumLayers() {
		return nil, errors.Wrapf(m.ErrCorruptModel, "%d layers listed, model has %d", len(mw.Layers), net.NumLayers())
	}
	for k, wd := range mw.Layers {
		if wd == nil {
			return nil, errors.Wrapf(m.ErrCorruptModel, "layer %d missing", k)
		}
		got := LayerToWeightData(wd.Name, net.Layer(k))
		if !slices.Equal(got.Shape, wd.Shape) || !slices.Equal(got.Data, wd.Data) {
			return nil, errors.Wrapf(m.ErrCorruptModel, "%s does not match the model", wd.Name)
		}
	}
	return net, nil
}

func (mw *ModelWeights) buildLayers() (*m.Network, error) {
	if len(mw.Layers) == 0 {
		return nil, errors.Wrap(m.ErrCorruptModel, "no layers")
	}
	layers := make([]*m.Layer, len(mw.Layers))
	for k, wd := range mw.Layers {
		l, err := WeightDataToLayer(wd)
		if err != nil {
			return nil, errors.WithMessagef(err, "layer %d", k)
		}
		layers[k] = l
	}
	net, err := m.NewNetworkFromLayers(layers)
	if err != nil {
		return nil, errors.Wrap(m.ErrCorruptModel, err.Error())
	}
	return net, nil
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal weights")
	}
	return errors.Wrap(os.WriteFile(filepath, data, 0644), "failed to write weights file")
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weights file")
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal weights")
	}
	return &weights, nil
}

// EncodeBytes encodes raw bytes to base64 string
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBytes decodes base64 string to raw bytes
func DecodeBytes(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
