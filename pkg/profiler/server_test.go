package profiler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Lifecycle(t *testing.T) {
	server := New(0)
	assert.Empty(t, server.Addr(), "no address before Start")

	require.NoError(t, server.Start(context.Background()))
	assert.True(t, strings.HasPrefix(server.Addr(), "127.0.0.1:"), "binds loopback only, got %s", server.Addr())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(shutdownCtx))
}

func TestServer_PprofEndpoints(t *testing.T) {
	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	for _, endpoint := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol", "/debug/pprof/goroutine?debug=1"} {
		t.Run(endpoint, func(t *testing.T) {
			resp, err := http.Get("http://" + server.Addr() + endpoint)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}
