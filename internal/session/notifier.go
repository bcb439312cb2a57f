// Package session fans out auth session changes.  Sign-ins, sign-outs and
// token refreshes are published on a Redis channel; any part of the process
// (or another instance) can subscribe and react, mirroring how the web
// client listened for auth-state changes.  The read side of a session —
// resolving the current user from a bearer token — lives in the JWT
// middleware.
package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying session events.
const Channel = "session.events"

// Event kinds.
const (
	SignedIn  = "signed_in"
	SignedOut = "signed_out"
	Refreshed = "refreshed"
)

// Event describes one session change.
type Event struct {
	Kind     string    `json:"kind"`
	UserID   uint64    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier publishes and subscribes to session events.  A Notifier built
// over a nil Redis client degrades to a no-op, the same way caching and
// rate limiting do when Redis is unavailable.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier wraps a Redis client; rdb may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish announces a session change.  Failures are logged, never fatal:
// a lost notification only delays observers until the next event.
func (n *Notifier) Publish(ctx context.Context, ev Event) {
	if n.rdb == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("session: marshal event failed: %v", err)
		return
	}
	if err := n.rdb.Publish(ctx, Channel, body).Err(); err != nil {
		log.Printf("session: publish %s failed: %v", ev.Kind, err)
	}
}

// Subscribe returns a stream of session events and a cancellation handle.
// The stream closes when cancel is called, when ctx ends, or immediately
// when no Redis client is configured.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, func()) {
	out := make(chan Event)
	if n.rdb == nil {
		close(out)
		return out, func() {}
	}
	sub := n.rdb.Subscribe(ctx, Channel)
	cancel := func() { _ = sub.Close() }
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("session: bad event payload: %v", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel
}
