// internal/feed/twitter.go
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// TwitterClient resolves usernames against the X/Twitter v2 users API.
type TwitterClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	maxTries    uint
	logger      *zap.Logger
}

func NewTwitterClient(baseURL, bearerToken string, timeout time.Duration, logger *zap.Logger) *TwitterClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwitterClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: timeout},
		maxTries:    3,
		logger:      logger.Named("twitter"),
	}
}

type userLookupResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// Lookup implements Resolver. Throttling and server errors are retried
// with exponential backoff; a missing user is returned as ErrUnknownAccount.
func (c *TwitterClient) Lookup(ctx context.Context, username string) (User, error) {
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s", c.baseURL, url.PathEscape(username))

	operation := func() (User, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return User{}, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return User{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
				return User{}, backoff.RetryAfter(secs)
			}
			return User{}, fmt.Errorf("rate limited")
		case resp.StatusCode >= 500:
			return User{}, fmt.Errorf("upstream status %d", resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return User{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnknownAccount, username))
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return User{}, backoff.Permanent(fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}

		var payload userLookupResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return User{}, backoff.Permanent(fmt.Errorf("decode user lookup: %w", err))
		}
		if payload.Data == nil {
			return User{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnknownAccount, username))
		}
		return User{ID: payload.Data.ID, Username: payload.Data.Username, Name: payload.Data.Name}, nil
	}

	notify := func(err error, d time.Duration) {
		c.logger.Warn("User lookup failed, retrying",
			zap.String("username", username),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(notify))
}
