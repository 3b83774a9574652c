package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/events"
	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/signal"
)

type stubQuoter struct {
	price float64
	err   error
	asked []string
}

func (q *stubQuoter) Quote(_ context.Context, symbol string) (float64, error) {
	q.asked = append(q.asked, symbol)
	return q.price, q.err
}

func newTestPipeline(t *testing.T, q *stubQuoter) (*Pipeline, *recordingPublisher, *recordingMetrics) {
	t.Helper()
	pub := &recordingPublisher{}
	rec := newRecordingMetrics()
	svc, _ := newTestTradingService(t, pub, rec, 0)
	return NewPipeline(svc, q, pub, rec, zaptest.NewLogger(t)), pub, rec
}

func testPost(text string) feed.Post {
	return feed.Post{ID: "100001", Text: text, Author: "elonmusk", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestPipeline_ActionableSignalTrades(t *testing.T) {
	q := &stubQuoter{price: 0.002}
	p, pub, rec := newTestPipeline(t, q)

	post := testPost("Buying $BONK now, to the moon!")
	s := signal.Extract(post.Text)
	p.HandleSignal(context.Background(), post, s)

	msgs := pub.all()
	require.Len(t, msgs, 2)

	assert.Equal(t, events.TopicTradeSignal, msgs[0].topic)
	se := msgs[0].payload.(domain.SignalEvent)
	assert.Equal(t, post.ID, se.ID)
	assert.Equal(t, post.Author, se.Author)
	assert.True(t, se.Signals.ShouldTrade)

	assert.Equal(t, events.TopicTradeExecuted, msgs[1].topic)
	te := msgs[1].payload.(domain.TradeExecutedEvent)
	assert.Equal(t, "BONK", te.Order.TokenSymbol)
	assert.Equal(t, 0.002, te.Order.EntryPrice)
	assert.Equal(t, domain.SourceSignal, te.Source)

	assert.Equal(t, []string{"BONK"}, q.asked)
	assert.Equal(t, []bool{true}, rec.signals)
	assert.Equal(t, 1, rec.placed["signal"])
}

func TestPipeline_NonActionableOnlyBroadcasts(t *testing.T) {
	q := &stubQuoter{price: 1}
	p, pub, rec := newTestPipeline(t, q)

	post := testPost("Good morning everyone")
	p.HandleSignal(context.Background(), post, signal.Extract(post.Text))

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicTradeSignal, msgs[0].topic)
	assert.Empty(t, q.asked)
	assert.Equal(t, []bool{false}, rec.signals)
}

func TestPipeline_QuoteFailureSkipsTrade(t *testing.T) {
	q := &stubQuoter{err: errors.New("no market")}
	p, pub, _ := newTestPipeline(t, q)

	post := testPost("$WIF looks strong")
	p.HandleSignal(context.Background(), post, signal.Extract(post.Text))

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicTradeSignal, msgs[0].topic)
}

func TestPipeline_AddressOnlySignal(t *testing.T) {
	q := &stubQuoter{price: 1}
	p, pub, _ := newTestPipeline(t, q)

	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	post := testPost("new launch " + mint)
	p.HandleSignal(context.Background(), post, signal.Extract(post.Text))

	msgs := pub.all()
	require.Len(t, msgs, 2)
	te := msgs[1].payload.(domain.TradeExecutedEvent)
	assert.Equal(t, mint, te.Order.TokenSymbol)
	assert.Equal(t, mint, te.TokenAddress)
}

func TestPipeline_InvalidQuoteIsLogged(t *testing.T) {
	q := &stubQuoter{price: -5}
	p, pub, rec := newTestPipeline(t, q)

	post := testPost("$RUG")
	p.HandleSignal(context.Background(), post, signal.Extract(post.Text))

	assert.Len(t, pub.all(), 1)
	assert.Equal(t, 1, rec.rejected["invalid_price"])
}

func TestPipeline_ThroughExtractor(t *testing.T) {
	q := &stubQuoter{price: 1}
	p, pub, _ := newTestPipeline(t, q)

	ex := signal.NewExtractor(p, zaptest.NewLogger(t))
	ex.OnPost(context.Background(), testPost("$SOL"))

	assert.Len(t, pub.all(), 2)
}
