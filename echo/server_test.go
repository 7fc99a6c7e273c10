package echo

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, config Config) (*Server, string) {
	t.Helper()

	config.Addr = "127.0.0.1:0"
	server := NewServer(config, NewMetrics(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, server.Start(ctx), "Failed to start server")

	t.Cleanup(func() {
		cancel()
		server.Stop()
	})

	return server, server.Addr().String()
}

func TestEchoRoundTrip(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	large := make([]byte, 10*readBufferSize+17)
	rand.New(rand.NewSource(1)).Read(large)

	tests := []struct {
		name    string
		message []byte
	}{
		{
			name:    "Default Client Message",
			message: []byte("hello from client"),
		},
		{
			name:    "Empty Message",
			message: nil,
		},
		{
			name:    "Binary Bytes",
			message: []byte{0x00, 0xff, 0x0a, 0x0d, 0x00},
		},
		{
			name:    "Larger Than Read Buffer",
			message: large,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := Dial(addr)
			require.NoError(t, err, "Failed to connect to server")
			defer client.Close()

			response, err := client.Exchange(tt.message)
			require.NoError(t, err, "Exchange failed")

			assert.True(t, bytes.Equal(tt.message, response),
				"Echoed bytes differ: sent %d bytes, got %d bytes", len(tt.message), len(response))
		})
	}
}

func TestEmptyMessageReadsImmediateEOF(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	response, err := client.Exchange(nil)
	require.NoError(t, err)

	assert.Empty(t, response, "Expected zero-length response")
	assert.Less(t, time.Since(start), time.Second, "EOF should arrive without waiting")
}

func TestSplitWritesArriveInOrder(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err, "Failed to connect to server")
	defer conn.Close()

	chunks := [][]byte{
		[]byte("first "),
		[]byte("second "),
		[]byte("third"),
	}
	var sent []byte
	for _, chunk := range chunks {
		_, err := conn.Write(chunk)
		require.NoError(t, err, "Failed to write chunk")
		sent = append(sent, chunk...)
	}

	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	var received bytes.Buffer
	buf := make([]byte, readBufferSize)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		n, err := conn.Read(buf)
		received.Write(buf[:n])
		if err != nil {
			break
		}
	}

	assert.Equal(t, sent, received.Bytes(), "Bytes reordered or altered")
}

func TestConcurrentClientsAreIsolated(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	const numClients = 10
	var wg sync.WaitGroup
	errs := make(chan error, numClients)

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			message := []byte(fmt.Sprintf("client %d says hello", id))

			client, err := Dial(addr)
			if err != nil {
				errs <- fmt.Errorf("client %d: connect: %w", id, err)
				return
			}
			defer client.Close()

			response, err := client.Exchange(message)
			if err != nil {
				errs <- fmt.Errorf("client %d: exchange: %w", id, err)
				return
			}
			if !bytes.Equal(message, response) {
				errs <- fmt.Errorf("client %d: got %q, want %q", id, response, message)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestHalfCloseDeliversInFlightBytes(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	// Several buffers' worth, written and half-closed in one go: the
	// server must still deliver everything already in flight.
	message := bytes.Repeat([]byte("abcdefgh"), readBufferSize)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	response, err := client.Exchange(message)
	require.NoError(t, err)
	assert.Equal(t, len(message), len(response), "Echo truncated after half-close")
	assert.True(t, bytes.Equal(message, response))
}

func TestConnectionsHandledMetric(t *testing.T) {
	server, addr := startTestServer(t, Config{})

	for i := 0; i < 3; i++ {
		client, err := Dial(addr)
		require.NoError(t, err)
		_, err = client.Exchange([]byte("ping"))
		require.NoError(t, err)
		client.Close()
	}

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(server.metrics.total_connections_handled) == 3
	}, 2*time.Second, 10*time.Millisecond, "Expected 3 handled connections")

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(server.metrics.current_active_connections) == 0
	}, 2*time.Second, 10*time.Millisecond, "Expected no active connections after close")
}

func TestMaxConnsStillEchoes(t *testing.T) {
	_, addr := startTestServer(t, Config{MaxConns: 1})

	// Sequential clients under a cap of one: each exchange completes once
	// the previous connection is released.
	for i := 0; i < 3; i++ {
		client, err := Dial(addr)
		require.NoError(t, err)

		response, err := client.Exchange([]byte("capped"))
		require.NoError(t, err)
		assert.Equal(t, []byte("capped"), response)
		client.Close()
	}
}

func TestShutdownStopsAccepting(t *testing.T) {
	server := NewServer(Config{Addr: "127.0.0.1:0"}, NewMetrics(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, server.Start(ctx))
	addr := server.Addr().String()

	cancel()
	server.Stop()

	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return false
		}
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server still accepting after shutdown")
}
