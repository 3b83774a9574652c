// internal/feed/stream.go
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// StreamSource reads JSON posts from a websocket endpoint. Connection loss
// is retried with exponential backoff; while disconnected no posts flow,
// which the pipeline treats as a quiet feed.
type StreamSource struct {
	url        string
	header     http.Header
	accounts   *Accounts
	maxTries   uint
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewStreamSource creates a source for url. Posts whose author is not in
// accounts are skipped; a nil accounts passes everything. maxTries bounds
// consecutive failed dials (0 retries forever).
func NewStreamSource(url, bearerToken string, accounts *Accounts, maxTries uint, logger *zap.Logger) *StreamSource {
	header := http.Header{}
	if bearerToken != "" {
		header.Set("Authorization", "Bearer "+bearerToken)
	}
	return &StreamSource{
		url:      url,
		header:   header,
		accounts: accounts,
		maxTries: maxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
		logger: logger.Named("stream_feed"),
	}
}

// Run implements Source. It returns nil on cancellation and an error only
// when dialing keeps failing past maxTries. A dropped connection is
// re-dialed after a backoff that resets once a connection delivers a frame.
func (s *StreamSource) Run(ctx context.Context, handler PostHandler) error {
	reconnect := s.newBackOff()
	reconnect.Reset()

	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect feed stream: %w", err)
		}

		delivered, err := s.consume(ctx, conn, handler)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			reconnect.Reset()
		}

		wait := reconnect.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("feed stream keeps dropping: %w", err)
		}
		s.logger.Warn("Feed stream disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *StreamSource) dial(ctx context.Context) (io.ReadWriteCloser, error) {
	dialer := ws.Dialer{Header: ws.HandshakeHeaderHTTP(s.header)}

	operation := func() (io.ReadWriteCloser, error) {
		conn, br, _, err := dialer.Dial(ctx, s.url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		if br == nil {
			return conn, nil
		}
		// bytes the server sent with the handshake response come first
		return &bufferedConn{Reader: io.MultiReader(br, conn), Conn: conn}, nil
	}

	notify := func(err error, d time.Duration) {
		s.logger.Warn("Feed stream dial failed", zap.Error(err), zap.Duration("backoff", d))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))
}

type bufferedConn struct {
	io.Reader
	net.Conn
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.Reader.Read(p) }

// consume reads frames until the connection fails and reports whether any
// frame arrived before it did.
func (s *StreamSource) consume(ctx context.Context, conn io.ReadWriteCloser, handler PostHandler) (bool, error) {
	s.logger.Info("Feed stream connected", zap.String("url", s.url))
	delivered := false

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		data, op, err := wsutil.ReadServerData(conn)
		if err != nil {
			return delivered, err
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		delivered = true

		post, err := decodePost(data)
		if err != nil {
			s.logger.Debug("Skipping malformed frame", zap.Error(err))
			continue
		}
		if s.accounts != nil && !s.accounts.Contains(post.Author) {
			continue
		}
		handler.OnPost(ctx, post)
	}
}

// streamEnvelope is the X/Twitter v2 filtered-stream shape.
type streamEnvelope struct {
	Data *struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

var errEmptyFrame = errors.New("frame carries no post")

// decodePost accepts either a flat Post object or a filtered-stream
// envelope.
func decodePost(data []byte) (Post, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Post{}, errEmptyFrame
	}

	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Post{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Data != nil {
		post := Post{
			ID:        env.Data.ID,
			Text:      env.Data.Text,
			Author:    env.Data.AuthorID,
			Timestamp: env.Data.CreatedAt,
		}
		for _, u := range env.Includes.Users {
			if u.ID == env.Data.AuthorID {
				post.Author = u.Username
				break
			}
		}
		return finishPost(post)
	}

	var post Post
	if err := json.Unmarshal(data, &post); err != nil {
		return Post{}, fmt.Errorf("decode post: %w", err)
	}
	return finishPost(post)
}

func finishPost(p Post) (Post, error) {
	if p.Text == "" {
		return Post{}, errEmptyFrame
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	return p, nil
}
