// internal/market/toptraders.go
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Trader is one wallet ranked by traded volume.
type Trader struct {
	Wallet string  `json:"wallet"`
	Volume float64 `json:"volume"`
}

// FallbackTraders is served when the upstream cannot be reached.
var FallbackTraders = []Trader{
	{Wallet: "7Tz...dummy1", Volume: 1200},
	{Wallet: "9Xf...dummy2", Volume: 950},
	{Wallet: "3Ab...dummy3", Volume: 870},
}

// TopTradersClient reads top trader wallets from Dexscreener.
type TopTradersClient struct {
	url        string
	httpClient *http.Client
	maxTries   uint
	logger     *zap.Logger
}

func NewTopTradersClient(url string, timeout time.Duration, logger *zap.Logger) *TopTradersClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TopTradersClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		maxTries:   2,
		logger:     logger.Named("market"),
	}
}

// TopTraders never fails: any upstream error is logged and the fallback
// list returned instead.
func (c *TopTradersClient) TopTraders(ctx context.Context) []Trader {
	traders, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error("Error fetching top traders", zap.String("url", c.url), zap.Error(err))
		out := make([]Trader, len(FallbackTraders))
		copy(out, FallbackTraders)
		return out
	}
	c.logger.Debug("Fetched top traders", zap.Int("count", len(traders)))
	return traders
}

func (c *TopTradersClient) fetch(ctx context.Context) ([]Trader, error) {
	operation := func() ([]Trader, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("upstream status %d", resp.StatusCode))
		}

		var payload struct {
			Traders []Trader `json:"traders"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode top traders: %w", err))
		}
		if payload.Traders == nil {
			payload.Traders = []Trader{}
		}
		return payload.Traders, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries))
}
