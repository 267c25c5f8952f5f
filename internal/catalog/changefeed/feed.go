// Package changefeed announces catalog changes to interested parties. It
// replaces ad-hoc refresh signals with one explicit publish/subscribe point.
package changefeed

import (
	"context"
	"sync"
	"time"
)

type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionRecovered Action = "recovered"
	ActionPurged    Action = "purged"
	ActionImage     Action = "image_uploaded"
)

// Event describes one change to one record.
type Event struct {
	Kind      string    `json:"kind"`
	Action    Action    `json:"action"`
	RecordID  string    `json:"record_id"`
	Status    string    `json:"status,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Subscriber is called synchronously for every published event. It must not
// publish to the same feed.
type Subscriber func(ctx context.Context, e Event)

// Feed fans events out to subscribers in subscription order.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Subscriber
}

func New() *Feed {
	return &Feed{}
}

// Subscribe registers fn and returns a function that removes it.
func (f *Feed) Subscribe(fn Subscriber) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	subID := f.nextID
	f.subs = append(f.subs, subscription{id: subID, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.subs {
				if s.id == subID {
					f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber. A nil Feed drops events.
func (f *Feed) Publish(ctx context.Context, e Event) {
	if f == nil {
		return
	}
	f.mu.RLock()
	subs := make([]subscription, len(f.subs))
	copy(subs, f.subs)
	f.mu.RUnlock()

	for _, s := range subs {
		s.fn(ctx, e)
	}
}
