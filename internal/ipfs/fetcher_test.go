package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFetcher(gateways ...string) *Fetcher {
	return NewFetcher("", gateways, 2*time.Second, zap.NewNop())
}

func TestDownloadFirstGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/QmTest", r.URL.Path)
		w.Write([]byte("U2FsdGVkX1payload"))
	}))
	defer srv.Close()

	data, err := newTestFetcher(srv.URL).Download(context.Background(), "QmTest")
	require.NoError(t, err)
	assert.Equal(t, []byte("U2FsdGVkX1payload"), data)
}

func TestDownloadFallsBackOnNon200(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("U2FsdGVkX1from-gateway-2"))
	}))
	defer good.Close()

	data, err := newTestFetcher(broken.URL, good.URL).Download(context.Background(), "QmHash")
	require.NoError(t, err)
	assert.Equal(t, []byte("U2FsdGVkX1from-gateway-2"), data)
}

func TestDownloadAllGatewaysExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL, srv.URL).Download(context.Background(), "QmMissing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllGatewaysExhausted)
}

func TestDownloadTimeoutCountsAsFailure(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer slow.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fast"))
	}))
	defer good.Close()

	f := NewFetcher("", []string{slow.URL, good.URL}, 50*time.Millisecond, zap.NewNop())
	data, err := f.Download(context.Background(), "QmSlow")
	require.NoError(t, err)
	assert.Equal(t, []byte("fast"), data)
}
