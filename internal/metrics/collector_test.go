package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/memesniper/internal/events"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.RecordSignal(true)
	c.RecordSignal(false)
	c.RecordSignal(true)
	c.RecordTradePlaced("signal")
	c.RecordTradeRejected("invalid_price")
	c.RecordTakeProfit()
	c.SetOpenOrders(3)
	c.RecordWhaleEvent("buy")

	assert.Equal(t, 3.0, testutil.ToFloat64(c.postsProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.signals.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signals.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesPlaced.WithLabelValues("signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradeRejections.WithLabelValues("invalid_price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.takeProfits))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.openOrders))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.whaleEvents.WithLabelValues("buy")))
}

func TestCollector_Observer(t *testing.T) {
	c := NewCollector()
	var obs events.Observer = c

	obs.Published(events.TopicTradeSignal)
	obs.Dropped(events.TopicTradeSignal, "ws")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.published.WithLabelValues("new_trade_signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("new_trade_signal", "ws")))
}

func TestCollector_DroppedLabelIsBounded(t *testing.T) {
	c := NewCollector()

	c.Dropped(events.TopicWhaleActivity, "ws:10.0.0.1")
	c.Dropped(events.TopicWhaleActivity, "ws:10.0.0.2")
	c.Dropped(events.TopicWhaleActivity, "amqp-relay")

	assert.Equal(t, 2, testutil.CollectAndCount(c.dropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.dropped.WithLabelValues("new_whale_activity", "ws")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("new_whale_activity", "amqp-relay")))
}

func TestCollector_WebsocketGauge(t *testing.T) {
	c := NewCollector()
	c.WebsocketConnected()
	c.WebsocketConnected()
	c.WebsocketDisconnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsClients))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordWhaleEvent("sell")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `memesniper_whale_events_total{type="sell"} 1`)
}
