package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/config"
	"github.com/orderflow/orderflow/pkg/logger"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.RateLimit.Enabled = false

	log := logger.New(&logger.Config{
		Level:  logger.InfoLevel,
		Format: "json",
		Output: "stdout",
	})
	h, _ := createTestHandlers(t)

	server := NewHTTPServer(cfg, log, h)
	require.NotNil(t, server)
	require.NotNil(t, server.server)
	require.NotNil(t, server.router)
	require.Equal(t, cfg.Server.HTTP.ReadTimeout, server.server.ReadTimeout)
}

func TestHTTPServer_StartShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.RateLimit.Enabled = false

	h, _ := createTestHandlers(t)
	server := NewHTTPServer(cfg, logger.Global(), h)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// Wait for the listener to come up.
	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		resp, err = http.Get(base + "/healthz")
		return err == nil
	}, 3*time.Second, 25*time.Millisecond, "server did not start")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	// ErrServerClosed is swallowed; Start returns nil on graceful shutdown.
	require.NoError(t, <-errCh)
}
