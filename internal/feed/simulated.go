// internal/feed/simulated.go
package feed

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var defaultTexts = []string{
	"Check out this new meme coin!",
	"Market is about to explode!",
	"Warning: pump incoming!",
	"New listing on Raydium!",
	"Loading up on $BONK, this one is going to the moon",
	"$WIF looks strong today",
	"Not touching $RUG, looks like a scam",
	"Fresh mint just dropped: 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
}

// SimulatedSource emits canned posts from tracked accounts on a fixed
// period. It exists so the pipeline runs without upstream credentials.
type SimulatedSource struct {
	accounts *Accounts
	interval time.Duration
	texts    []string
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	seq uint64
	now func() time.Time
}

func NewSimulatedSource(accounts *Accounts, interval time.Duration, logger *zap.Logger) *SimulatedSource {
	return &SimulatedSource{
		accounts: accounts,
		interval: interval,
		texts:    defaultTexts,
		logger:   logger.Named("simulated_feed"),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:      time.Now,
	}
}

// Run implements Source.
func (s *SimulatedSource) Run(ctx context.Context, handler PostHandler) error {
	s.logger.Info("Simulated feed started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Simulated feed stopped")
			return nil
		case <-ticker.C:
			post, ok := s.Next()
			if !ok {
				continue
			}
			handler.OnPost(ctx, post)
		}
	}
}

// Next builds the next synthetic post. It returns false when no account
// is tracked.
func (s *SimulatedSource) Next() (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	author := s.accounts.Random(s.rng.IntN)
	if author == "" {
		return Post{}, false
	}
	s.seq++
	return Post{
		ID:        strconv.FormatUint(100000+s.seq, 10),
		Text:      s.texts[s.rng.IntN(len(s.texts))],
		Author:    author,
		Timestamp: s.now().UTC(),
	}, true
}
