// acp-infer: runs a saved model on one input, in the clear or with the first
// layer evaluated on an encrypted input.
//
// Usage:
//
//	acp-infer -model xor.net -input "0 1" -target 1
//	acp-infer -model xor.net -input "0 1" -he
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/split"
	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/utils"
)

var (
	modelFile   = flag.String("model", "", "Model file written by acp-train")
	weightsFile = flag.String("weights", "", "Load a JSON weights dump instead of -model")
	input       = flag.String("input", "", "Input values, space or comma separated")
	target      = flag.String("target", "", "Target values; when set the error is printed")
	encrypted   = flag.Bool("he", false, "Evaluate the first layer on an encrypted input")
	wire        = flag.Bool("wire", false, "With -he, run the server in its own goroutine behind the gob protocol")
	dumpFile    = flag.String("dump", "", "Write the model's weights as JSON")
	verbose     = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	var net *m.Network
	if err := utils.Track(&stats.ModelInitTime, func() (err error) {
		net, err = loadNetwork()
		return err
	}); err != nil {
		fail("load model", err)
	}
	utils.Printf("Architecture: %v\n", net.Topology())

	if *dumpFile != "" {
		if err := utils.SaveWeights(*dumpFile, utils.NetworkWeights(net)); err != nil {
			fail("dump weights", err)
		}
		utils.Printf("Wrote weights to %s\n", *dumpFile)
		if *input == "" {
			return
		}
	}

	x, err := utils.ParseValues(*input)
	if err != nil {
		fail("parse input", err)
	}

	var out []float64
	err = utils.Track(&stats.EvaluationTime, func() (err error) {
		switch {
		case *encrypted && *wire:
			out, err = inferOverWire(net, x, stats)
		case *encrypted:
			out, err = inferEncrypted(net, x, stats)
		default:
			out, err = net.Forward(x)
		}
		return err
	})
	if err != nil {
		fail("inference", err)
	}
	fmt.Printf("Output: %v\n", out)

	if *target != "" {
		y, err := utils.ParseValues(*target)
		if err != nil {
			fail("parse target", err)
		}
		e, err := net.Error(x, y)
		if err != nil {
			fail("error", err)
		}
		fmt.Printf("Error: %.6f\n", e)
	}

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, 0)
}

func loadNetwork() (*m.Network, error) {
	switch {
	case *weightsFile != "":
		mw, err := utils.LoadWeights(*weightsFile)
		if err != nil {
			return nil, err
		}
		return mw.Network()
	case *modelFile != "":
		return m.Load(*modelFile)
	default:
		return nil, errors.New("one of -model or -weights is required")
	}
}

// inferEncrypted does the work of split.Infer step by step so every stage can be
// timed.
func inferEncrypted(net *m.Network, x []float64, stats *utils.TimingStats) ([]float64, error) {
	if len(x) != net.InputDim() {
		return nil, errors.Wrapf(m.ErrDimensionMismatch, "input has length %d, want %d", len(x), net.InputDim())
	}

	var client *split.Client
	var server *split.Server
	if err := utils.Track(&stats.HEInitTime, func() error {
		params, err := split.DefaultParameters()
		if err != nil {
			return errors.Wrap(err, "parameters")
		}
		if client, err = split.NewClient(params, net.InputDim()); err != nil {
			return err
		}
		server, err = split.NewServer(params, client.EvaluationKeys(), net.Layer(0))
		return err
	}); err != nil {
		return nil, err
	}

	var ct *rlwe.Ciphertext
	if err := utils.Track(&stats.EncryptionTime, func() (err error) {
		ct, err = client.EncryptInput(x)
		return err
	}); err != nil {
		return nil, err
	}

	var cts []*rlwe.Ciphertext
	if err := utils.Track(&stats.ServerTime, func() (err error) {
		cts, err = server.WeightedSums(ct)
		return err
	}); err != nil {
		return nil, err
	}

	var sums []float64
	if err := utils.Track(&stats.DecryptionTime, func() (err error) {
		sums, err = client.DecryptSums(cts)
		return err
	}); err != nil {
		return nil, err
	}
	return split.Finish(net, sums)
}

// inferOverWire serves the first layer from a goroutine connected by pipes, the
// same message flow a remote server would see.
func inferOverWire(net *m.Network, x []float64, stats *utils.TimingStats) ([]float64, error) {
	var client *split.Client
	var server *split.Server
	if err := utils.Track(&stats.HEInitTime, func() error {
		params, err := split.DefaultParameters()
		if err != nil {
			return errors.Wrap(err, "parameters")
		}
		if client, err = split.NewClient(params, net.InputDim()); err != nil {
			return err
		}
		server, err = split.NewServer(params, client.EvaluationKeys(), net.Layer(0))
		return err
	}); err != nil {
		return nil, err
	}

	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := server.Serve(split.NewProtocol(toServer, fromServer))
		fromServer.Close()
		done <- err
	}()

	p := split.NewProtocol(toClient, fromClient)
	var sums []float64
	err := utils.Track(&stats.ServerTime, func() (err error) {
		sums, err = client.Query(p, 0, x)
		return err
	})
	if err != nil {
		fromClient.CloseWithError(err)
		<-done
		return nil, err
	}
	if err := p.SendDone(); err != nil {
		return nil, errors.Wrap(err, "send done")
	}
	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "server")
	}
	return split.Finish(net, sums)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", what, err)
	os.Exit(1)
}
