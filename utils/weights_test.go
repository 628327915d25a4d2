package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

func testNetwork(t *testing.T) *m.Network {
	t.Helper()
	net, err := m.NewNetwork(m.Config{InputNum: 2, LayerSizes: []int{3, 1}, Seed: 7})
	require.NoError(t, err)
	return net
}

func TestLayerToWeightData(t *testing.T) {
	l, err := m.NewLayer(2, 3)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			require.NoError(t, l.Set(i, j, float64(i*3+j)*0.5))
		}
	}

	wd := LayerToWeightData("test_weight", l)
	assert.Equal(t, "test_weight", wd.Name)
	assert.Equal(t, []int{2, 3}, wd.Shape)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5}, wd.Data)

	back, err := WeightDataToLayer(wd)
	require.NoError(t, err)
	v, err := back.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestWeightDataToLayerRejectsBadShape(t *testing.T) {
	tests := map[string]*WeightData{
		"nil":            nil,
		"1-d":            {Name: "w", Shape: []int{2}, Data: []float64{1, 2}},
		"short data":     {Name: "w", Shape: []int{2, 2}, Data: []float64{1, 2, 3}},
		"zero rows":      {Name: "w", Shape: []int{0, 2}},
		"negative cols":  {Name: "w", Shape: []int{2, -1}, Data: []float64{1}},
		"huge":           {Name: "w", Shape: []int{1 << 24, 1 << 24}},
		"overflowing":    {Name: "w", Shape: []int{1 << 32, 1 << 32}},
		"overflow match": {Name: "w", Shape: []int{1 << 62, 4}},
	}
	for name, wd := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := WeightDataToLayer(wd)
			assert.ErrorIs(t, err, m.ErrCorruptModel)
			assert.Nil(t, l)
		})
	}
}

func TestNetworkWeights(t *testing.T) {
	net := testNetwork(t)
	mw := NetworkWeights(net)

	assert.Equal(t, weightsVersion, mw.Version)
	assert.Equal(t, 2, mw.Input)
	require.Len(t, mw.Layers, 2)
	assert.Equal(t, "layer0", mw.Layers[0].Name)
	assert.Equal(t, []int{3, 1}, mw.Layers[1].Shape)
	assert.NotEmpty(t, mw.Model)
}

func TestSaveLoadWeights(t *testing.T) {
	net := testNetwork(t)
	path := filepath.Join(t.TempDir(), "weights.json")

	require.NoError(t, SaveWeights(path, NetworkWeights(net)))
	loaded, err := LoadWeights(path)
	require.NoError(t, err)

	back, err := loaded.Network()
	require.NoError(t, err)
	assert.Equal(t, m.Encode(net), m.Encode(back))
}

func TestNetworkFromLayersOnly(t *testing.T) {
	net := testNetwork(t)
	mw := NetworkWeights(net)
	mw.Model = ""

	back, err := mw.Network()
	require.NoError(t, err)
	assert.Equal(t, m.Encode(net), m.Encode(back))

	_, err = (&ModelWeights{}).Network()
	assert.ErrorIs(t, err, m.ErrCorruptModel)
}

func TestLoadWeightsErrors(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadWeights(path)
	assert.Error(t, err)
}

func TestEncodeDecodeBytes(t *testing.T) {
	original := []byte{0, 1, 2, 255, 128, 64}
	decoded, err := DecodeBytes(EncodeBytes(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = DecodeBytes("!!!")
	assert.Error(t, err)
}

func TestNetworkRejectsMalformedDump(t *testing.T) {
	valid := func() *ModelWeights { return NetworkWeights(testNetwork(t)) }

	tests := map[string]func(mw *ModelWeights){
		"nil layer": func(mw *ModelWeights) { mw.Model = ""; mw.Layers[1] = nil },
		"layers do not chain": func(mw *ModelWeights) {
			mw.Model = ""
			mw.Layers[1] = &WeightData{Name: "layer1", Shape: []int{2, 1}, Data: []float64{1, 2}}
		},
		"input mismatch":        func(mw *ModelWeights) { mw.Input = 5 },
		"input mismatch layers": func(mw *ModelWeights) { mw.Model = ""; mw.Input = 3 },
		"layer count differs":   func(mw *ModelWeights) { mw.Layers = mw.Layers[:1] },
		"weights differ":        func(mw *ModelWeights) { mw.Layers[0].Data[0] += 1 },
		"shape differs": func(mw *ModelWeights) {
			mw.Layers[1].Shape = []int{1, 3}
		},
		"nil layer next to model": func(mw *ModelWeights) { mw.Layers[0] = nil },
		"corrupt model":           func(mw *ModelWeights) { mw.Model = EncodeBytes([]byte{1, 0, 0, 0}) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			mw := valid()
			mutate(mw)
			net, err := mw.Network()
			assert.ErrorIs(t, err, m.ErrCorruptModel)
			assert.Nil(t, net)
		})
	}
}

func TestNetworkModelOnly(t *testing.T) {
	net := testNetwork(t)
	mw := NetworkWeights(net)
	mw.Layers = nil

	back, err := mw.Network()
	require.NoError(t, err)
	assert.Equal(t, m.Encode(net), m.Encode(back))
}
