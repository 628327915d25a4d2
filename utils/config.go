package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds training configuration
type Config struct {
	Architecture []int // input size followed by the output size of every layer
	LearningRate float64
	Epochs       int
	Seed         uint64
	DataPath     string
	ModelPath    string
	Normalize    bool
}

// InputNum is the first entry of the architecture.
func (c *Config) InputNum() int {
	if len(c.Architecture) == 0 {
		return 0
	}
	return c.Architecture[0]
}

// LayerSizes are the architecture entries after the input size.
func (c *Config) LayerSizes() []int {
	if len(c.Architecture) < 2 {
		return nil
	}
	return append([]int(nil), c.Architecture[1:]...)
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "architecture entry %d", i)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return errors.New("architecture must have an input size and at least one layer")
	}
	for i, n := range config.Architecture {
		if n <= 0 {
			return errors.Errorf("architecture entry %d must be positive, got %d", i, n)
		}
	}

	if config.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}

	if config.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}

	return nil
}

// ParseValues parses whitespace or comma separated numbers, as given to -input.
func ParseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		values[i] = v
	}
	return values, nil
}
