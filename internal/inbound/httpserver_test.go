package inbound

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHTTP_BindsAndServes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	hs, err := ServeHTTP("127.0.0.1:0", mux)
	require.NoError(t, err)
	defer hs.Shutdown(context.Background())

	select {
	case err := <-hs.Errors():
		t.Fatalf("unexpected listener error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeHTTP_InvalidAddrIsError(t *testing.T) {
	_, err := ServeHTTP("not-an-address", http.NewServeMux())
	assert.Error(t, err)
}

func TestShutdown_NoopOnEmptyServer(t *testing.T) {
	hs := &HTTPServer{}
	assert.NoError(t, hs.Shutdown(context.Background()))
}
