package httpserver_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamartins/folio/pkg/httpserver"
)

func TestServerRun(t *testing.T) {
	t.Parallel()

	t.Run("stops on context cancellation", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(time.Second),
		)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("refuses a second run", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(time.Second),
		)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		go func() { _ = srv.Run(ctx, nil) }()
		time.Sleep(100 * time.Millisecond)

		err := srv.Run(ctx, nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("invalid address fails", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(httpserver.WithAddr("not-an-address"))

		err := srv.Run(t.Context(), nil)
		require.ErrorIs(t, err, httpserver.ErrStart)
	})
}

func TestServerShutdown(t *testing.T) {
	t.Parallel()

	srv := httpserver.New()
	assert.NoError(t, srv.Shutdown(context.Background()), "shutdown before run is a no-op")
}
