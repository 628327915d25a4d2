package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArchitecture(t *testing.T) {
	arch, err := ParseArchitecture("2 2  1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, arch)

	arch, err = ParseArchitecture("")
	require.NoError(t, err)
	assert.Empty(t, arch)

	_, err = ParseArchitecture("2 x 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 1")
}

func TestConfigSplitsArchitecture(t *testing.T) {
	c := &Config{Architecture: []int{3, 4, 2}}
	assert.Equal(t, 3, c.InputNum())
	assert.Equal(t, []int{4, 2}, c.LayerSizes())

	empty := &Config{}
	assert.Equal(t, 0, empty.InputNum())
	assert.Nil(t, empty.LayerSizes())
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{Architecture: []int{2, 2, 1}, LearningRate: 0.5, Epochs: 10}
	}
	require.NoError(t, ValidateConfig(valid()))

	tests := map[string]func(c *Config){
		"input only":     func(c *Config) { c.Architecture = []int{2} },
		"zero layer":     func(c *Config) { c.Architecture = []int{2, 0, 1} },
		"negative input": func(c *Config) { c.Architecture = []int{-2, 1} },
		"zero rate":      func(c *Config) { c.LearningRate = 0 },
		"zero epochs":    func(c *Config) { c.Epochs = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, ValidateConfig(c))
		})
	}
}

func TestParseValues(t *testing.T) {
	values, err := ParseValues("0 1.5, -2,3e-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1.5, -2, 0.3}, values)

	_, err = ParseValues("1 two")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value 1")
}
