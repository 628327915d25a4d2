// acp-train: trains a sigmoid network with online backpropagation and saves it
// in the binary model format.
//
// Usage:
//
//	acp-train -arch "2 2 1" -lr 0.5 -epochs 1000 -model xor.net
//	acp-train -arch "4 8 3" -data iris.csv -normalize -model iris.net
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/utils"
)

var (
	architecture = flag.String("arch", "2 2 1", "Input size followed by every layer's output size")
	learningRate = flag.Float64("lr", 0.5, "Learning rate")
	epochs       = flag.Int("epochs", 1000, "Number of passes over the data")
	seed         = flag.Uint64("seed", 42, "Weight initialization seed")
	dataFile     = flag.String("data", "", "CSV file of input and target values (default: XOR)")
	normalize    = flag.Bool("normalize", false, "Normalize inputs to zero mean and unit deviation")
	initFile     = flag.String("init", "", "Continue training a saved model instead of a fresh one")
	modelFile    = flag.String("model", "", "Output model file")
	weightsFile  = flag.String("weights", "", "Output weights dump (JSON)")
	reportEvery  = flag.Int("report", 100, "Print the error every N epochs")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	arch, err := utils.ParseArchitecture(*architecture)
	if err != nil {
		fail("parse architecture", err)
	}
	config := &utils.Config{
		Architecture: arch,
		LearningRate: *learningRate,
		Epochs:       *epochs,
		Seed:         *seed,
		DataPath:     *dataFile,
		ModelPath:    *modelFile,
		Normalize:    *normalize,
	}
	if err := utils.ValidateConfig(config); err != nil {
		fail("invalid configuration", err)
	}

	utils.Printf("Configuration:\n")
	utils.Printf("  Architecture:  %v\n", config.Architecture)
	utils.Printf("  Learning rate: %.4f\n", config.LearningRate)
	utils.Printf("  Epochs:        %d\n", config.Epochs)
	utils.Printf("  Seed:          %d\n", config.Seed)

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	var lines m.Lines
	if err := utils.Track(&stats.DataLoadingTime, func() (err error) {
		lines, err = loadLines(config)
		return err
	}); err != nil {
		fail("load data", err)
	}
	utils.Printf("Loaded %d examples\n", len(lines))

	var net *m.Network
	if err := utils.Track(&stats.ModelInitTime, func() (err error) {
		net, err = buildNetwork(config)
		return err
	}); err != nil {
		fail("build network", err)
	}

	for epoch := 1; epoch <= config.Epochs; epoch++ {
		var sum float64
		err := utils.Track(&stats.TrainingTime, func() (err error) {
			sum, err = net.TrainLines(lines, config.LearningRate)
			return err
		})
		if err != nil {
			fail("train", err)
		}
		if *reportEvery > 0 && (epoch%*reportEvery == 0 || epoch == config.Epochs) {
			utils.Printf("Epoch %d/%d | Error: %.6f\n", epoch, config.Epochs, sum)
		}
	}

	var total float64
	if err := utils.Track(&stats.EvaluationTime, func() (err error) {
		total, err = net.TotalError(lines)
		return err
	}); err != nil {
		fail("evaluate", err)
	}
	fmt.Printf("Final error: %.6f\n", total)

	if config.ModelPath != "" {
		if err := utils.Track(&stats.SaveTime, func() error {
			return net.Save(config.ModelPath)
		}); err != nil {
			fail("save model", err)
		}
		utils.Printf("Saved model to %s\n", config.ModelPath)
	}
	if *weightsFile != "" {
		if err := utils.SaveWeights(*weightsFile, utils.NetworkWeights(net)); err != nil {
			fail("save weights", err)
		}
		utils.Printf("Saved weights to %s\n", *weightsFile)
	}

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, config.Epochs*len(lines))
}

func loadLines(config *utils.Config) (m.Lines, error) {
	outputNum := config.Architecture[len(config.Architecture)-1]
	var lines m.Lines
	if config.DataPath == "" {
		if config.InputNum() != 2 || outputNum != 1 {
			return nil, errors.Errorf("the built-in XOR set needs architecture \"2 ... 1\", got %v", config.Architecture)
		}
		lines = m.XORLines()
	} else {
		f, err := os.Open(config.DataPath)
		if err != nil {
			return nil, errors.Wrap(err, "open data")
		}
		defer f.Close()
		if lines, err = m.GetLines(f, config.InputNum(), outputNum); err != nil {
			return nil, errors.WithMessage(err, config.DataPath)
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("no examples")
	}

	if config.Normalize {
		mean := m.CalculateMean(lines)
		std := m.CalculateStdDev(lines)
		lines = m.NormalizeLines(lines, std, mean)
		utils.Printf("Input mean: %v\nInput std:  %v\n", mean, std)
	}
	return lines, nil
}

func buildNetwork(config *utils.Config) (*m.Network, error) {
	if *initFile == "" {
		return m.NewNetwork(m.Config{
			InputNum:   config.InputNum(),
			LayerSizes: config.LayerSizes(),
			Seed:       config.Seed,
		})
	}

	net, err := m.Load(*initFile)
	if err != nil {
		return nil, err
	}
	if err := checkArchitecture(net, config.Architecture); err != nil {
		return nil, errors.WithMessage(err, *initFile)
	}
	utils.Printf("Continuing from %s\n", *initFile)
	return net, nil
}

// checkArchitecture makes sure a loaded network has the configured architecture.
func checkArchitecture(net *m.Network, arch []int) error {
	if !slices.Equal(net.Topology(), arch) {
		return errors.Wrapf(m.ErrInvalidTopology, "architecture %v, want %v", net.Topology(), arch)
	}
	return nil
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", what, err)
	os.Exit(1)
}
