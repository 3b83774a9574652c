// internal/feed/types.go
package feed

import (
	"context"
	"time"
)

// Post is a single short text post from an upstream social feed.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// PostHandler receives posts from a Source. Implementations must not block
// for long; the source delivers posts one at a time.
type PostHandler interface {
	OnPost(ctx context.Context, post Post)
}

// PostHandlerFunc adapts a function to PostHandler.
type PostHandlerFunc func(ctx context.Context, post Post)

func (f PostHandlerFunc) OnPost(ctx context.Context, post Post) {
	f(ctx, post)
}

// Source pushes posts to a handler until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, handler PostHandler) error
}

// User is the resolved identity of a tracked account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}
