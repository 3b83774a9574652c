package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestTopTraders_Upstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"traders":[{"wallet":"AbC","volume":5000.5}]}`))
	}))
	defer srv.Close()

	c := NewTopTradersClient(srv.URL, time.Second, zaptest.NewLogger(t))
	assert.Equal(t, []Trader{{Wallet: "AbC", Volume: 5000.5}}, c.TopTraders(context.Background()))
}

func TestTopTraders_MissingKeyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewTopTradersClient(srv.URL, time.Second, zaptest.NewLogger(t))
	got := c.TopTraders(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTopTraders_FallbackAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewTopTradersClient(srv.URL, time.Second, zaptest.NewLogger(t))
	got := c.TopTraders(context.Background())

	assert.Equal(t, FallbackTraders, got)
	assert.EqualValues(t, 2, calls.Load())

	got[0].Volume = 0
	assert.Equal(t, 1200.0, FallbackTraders[0].Volume)
}

func TestTopTraders_FallbackOnBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewTopTradersClient(srv.URL, time.Second, zaptest.NewLogger(t))
	assert.Equal(t, FallbackTraders, c.TopTraders(context.Background()))
}
