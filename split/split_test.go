package split

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"

	"github.com/YaroslavTsvirkun/AutomaticCalculationParameters/m"
)

const heTolerance = 1e-4

func setup(t *testing.T, input int, sizes ...int) (hefloat.Parameters, *m.Network, *Client, *Server) {
	t.Helper()
	params, err := DefaultParameters()
	require.NoError(t, err)

	net, err := m.NewNetwork(m.Config{InputNum: input, LayerSizes: sizes, Seed: 3})
	require.NoError(t, err)

	client, err := NewClient(params, input)
	require.NoError(t, err)
	server, err := NewServer(params, client.EvaluationKeys(), net.Layer(0))
	require.NoError(t, err)
	return params, net, client, server
}

func TestWeightedSumsMatchPlaintext(t *testing.T) {
	_, net, client, server := setup(t, 5, 3, 2)
	x := []float64{0.3, -0.8, 0.1, 0.9, -0.4}

	ct, err := client.EncryptInput(x)
	require.NoError(t, err)
	cts, err := server.WeightedSums(ct)
	require.NoError(t, err)
	require.Len(t, cts, 3)

	sums, err := client.DecryptSums(cts)
	require.NoError(t, err)

	layer := net.Layer(0)
	for j := 0; j < layer.OutputDim(); j++ {
		var want float64
		for i, xi := range x {
			w, err := layer.At(i, j)
			require.NoError(t, err)
			want += w * xi
		}
		require.InDelta(t, want, sums[j], heTolerance, "neuron %d", j)
	}
}

func TestInferMatchesForward(t *testing.T) {
	_, net, client, server := setup(t, 4, 3, 2)
	for _, x := range [][]float64{
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{0.25, -0.5, 0.75, -1},
	} {
		want, err := net.Forward(x)
		require.NoError(t, err)
		got, err := Infer(net, client, server, x)
		require.NoError(t, err)
		require.InDeltaSlice(t, want, got, heTolerance)
	}
}

func TestInferSingleLayer(t *testing.T) {
	_, net, client, server := setup(t, 1, 1)
	want, err := net.Forward([]float64{0.6})
	require.NoError(t, err)
	got, err := Infer(net, client, server, []float64{0.6})
	require.NoError(t, err)
	require.InDeltaSlice(t, want, got, heTolerance)
}

func TestInferDimensionMismatch(t *testing.T) {
	_, net, client, server := setup(t, 2, 2, 1)
	_, err := Infer(net, client, server, []float64{1, 2, 3})
	require.ErrorIs(t, err, m.ErrDimensionMismatch)

	_, err = client.EncryptInput([]float64{1})
	require.ErrorIs(t, err, m.ErrDimensionMismatch)
}

func TestNewClientRejectsOversizedInput(t *testing.T) {
	params, err := DefaultParameters()
	require.NoError(t, err)
	_, err = NewClient(params, slots(params)+1)
	require.ErrorIs(t, err, m.ErrDimensionMismatch)
	_, err = NewClient(params, 0)
	require.ErrorIs(t, err, m.ErrDimensionMismatch)
}

func TestServeOverPipe(t *testing.T) {
	_, net, client, server := setup(t, 3, 2, 1)

	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()
	serverSide := NewProtocol(toServer, fromServer)
	clientSide := NewProtocol(toClient, fromClient)

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(serverSide)
	}()

	inputs := [][]float64{{0.1, 0.2, 0.3}, {-1, 0.5, 0}}
	for id, x := range inputs {
		sums, err := client.Query(clientSide, id, x)
		require.NoError(t, err)

		got, err := Finish(net, sums)
		require.NoError(t, err)
		want, err := net.Forward(x)
		require.NoError(t, err)
		require.InDeltaSlice(t, want, got, heTolerance)
	}

	require.NoError(t, clientSide.SendDone())
	require.NoError(t, <-done)
}

func TestNextPow2(t *testing.T) {
	for n, want := range map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 784: 1024} {
		if got := nextPow2(n); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestServeReportsFailedRequest(t *testing.T) {
	_, _, _, server := setup(t, 2, 2, 1)

	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()
	clientSide := NewProtocol(toClient, fromClient)

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(NewProtocol(toServer, fromServer))
	}()

	require.NoError(t, clientSide.SendInput(1, []byte{1, 2, 3}))
	_, err := clientSide.ReceiveSums()
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote error")
	require.Contains(t, err.Error(), "unmarshal input")

	err = <-done
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal input")
}

func TestQueryRejectsWrongRequestID(t *testing.T) {
	_, _, client, _ := setup(t, 2, 2, 1)

	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()
	serverSide := NewProtocol(toServer, fromServer)

	go func() {
		payload, err := serverSide.ReceiveInput()
		if err != nil {
			fromServer.CloseWithError(err)
			return
		}
		serverSide.SendSums(payload.RequestID+1, nil)
	}()

	_, err := client.Query(NewProtocol(toClient, fromClient), 7, []float64{0.5, -0.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sums for request 8, want 7")
}
