package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/routes/health"
)

type countingWaiter struct {
	calls atomic.Int32
}

func (w *countingWaiter) Wait() {
	w.calls.Add(1)
}

func quietLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestRunServer_ListenFailureDrainsRuns(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	server := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	waiter := &countingWaiter{}

	err = runServer(context.Background(), server, health.NewChecker("test"), waiter, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
	assert.Equal(t, int32(1), waiter.calls.Load())
}

func TestRunServer_ShutdownDrainsRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	waiter := &countingWaiter{}

	require.NoError(t, runServer(ctx, server, health.NewChecker("test"), waiter, quietLogger()))
	assert.Equal(t, int32(1), waiter.calls.Load())
}
