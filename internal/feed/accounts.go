// internal/feed/accounts.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrUnknownAccount means the upstream has no such user.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrNotTracked is returned when untracking an account that is not tracked.
	ErrNotTracked = errors.New("account not found")
	// ErrEmptyUsername is returned for blank input.
	ErrEmptyUsername = errors.New("username is required")
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// Resolver looks up an account on the upstream social network.
type Resolver interface {
	Lookup(ctx context.Context, username string) (User, error)
}

// HandleResolver accepts any syntactically valid handle. It stands in when
// no upstream credentials are configured.
type HandleResolver struct{}

func (HandleResolver) Lookup(_ context.Context, username string) (User, error) {
	if !handlePattern.MatchString(username) {
		return User{}, fmt.Errorf("%w: %q is not a valid handle", ErrUnknownAccount, username)
	}
	return User{ID: username, Username: username}, nil
}

// NormalizeUsername strips whitespace and a leading '@' and lowercases.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// Accounts is the set of tracked social accounts. Only posts authored by a
// tracked account reach the pipeline.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]User
	resolver Resolver
	logger   *zap.Logger
}

func NewAccounts(initial []string, resolver Resolver, logger *zap.Logger) *Accounts {
	if resolver == nil {
		resolver = HandleResolver{}
	}
	a := &Accounts{
		accounts: make(map[string]User, len(initial)),
		resolver: resolver,
		logger:   logger.Named("accounts"),
	}
	for _, name := range initial {
		if n := NormalizeUsername(name); n != "" {
			a.accounts[n] = User{Username: n}
		}
	}
	return a
}

// List returns tracked usernames in sorted order.
func (a *Accounts) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.accounts))
	for name := range a.accounts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether username is tracked.
func (a *Accounts) Contains(username string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.accounts[NormalizeUsername(username)]
	return ok
}

// Track verifies username upstream and starts tracking it. Tracking an
// already tracked account is a no-op.
func (a *Accounts) Track(ctx context.Context, username string) (User, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return User{}, ErrEmptyUsername
	}

	user, err := a.resolver.Lookup(ctx, name)
	if err != nil {
		return User{}, fmt.Errorf("track %s: %w", name, err)
	}
	if user.Username == "" {
		user.Username = name
	}

	a.mu.Lock()
	a.accounts[name] = user
	a.mu.Unlock()

	a.logger.Info("Tracking account", zap.String("username", name), zap.String("user_id", user.ID))
	return user, nil
}

// Untrack stops tracking username.
func (a *Accounts) Untrack(username string) error {
	name := NormalizeUsername(username)
	if name == "" {
		return ErrEmptyUsername
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.accounts[name]; !ok {
		return fmt.Errorf("untrack %s: %w", name, ErrNotTracked)
	}
	delete(a.accounts, name)

	a.logger.Info("Stopped tracking account", zap.String("username", name))
	return nil
}

// Random returns a tracked username chosen by pick, or "" when none are
// tracked. pick receives the number of candidates.
func (a *Accounts) Random(pick func(n int) int) string {
	names := a.List()
	if len(names) == 0 {
		return ""
	}
	return names[pick(len(names))]
}
