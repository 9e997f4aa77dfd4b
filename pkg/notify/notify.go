// Package notify turns backend events into a short feed of notifications by
// polling on a fixed interval.
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/kubdash/kubdash/pkg/models"
)

// FeedSize is the number of notifications kept.
const FeedSize = 10

// DefaultInterval is the polling period used when none is set.
const DefaultInterval = 3 * time.Second

// Message renders an event for display.
func Message(e models.Event) string {
	switch e.Type {
	case models.EventUserCreated:
		return "New user registered: " + e.Email
	case models.EventUserDetailsCreated:
		return "User profile completed: " + e.Name
	default:
		return "Event: " + e.Type
	}
}

// Feed holds the most recent notifications, newest first.
type Feed struct {
	mu    sync.Mutex
	items []models.Notification
	seq   atomic.Uint64
}

// Push prepends notifications for events, in the order given, and trims
// the feed to FeedSize.
func (f *Feed) Push(events ...models.Event) []models.Notification {
	added := make([]models.Notification, 0, len(events))
	for _, e := range events {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		added = append(added, models.Notification{
			ID:        fmt.Sprintf("%d-%d", ts.UnixMilli(), f.seq.Add(1)),
			Type:      e.Type,
			Message:   Message(e),
			Timestamp: ts,
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(slices.Clone(added), f.items...)
	if len(f.items) > FeedSize {
		f.items = f.items[:FeedSize]
	}
	return added
}

// List returns a copy of the feed.
func (f *Feed) List() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...)
}

// Unread counts notifications not yet marked read.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkRead flags the notification with id as read.
func (f *Feed) MarkRead(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return true
		}
	}
	return false
}

// Remove drops the notification with id.
func (f *Feed) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

// Source fetches pending events.
type Source interface {
	Events(ctx context.Context) ([]models.Event, error)
}

// Poller fetches events from Source every Interval and pushes them into
// Feed. Failed fetches are logged and the next tick tries again.
type Poller struct {
	Source   Source
	Feed     *Feed
	Interval time.Duration
	Log      log.Interface
	// OnUpdate, if set, receives the notifications added by each tick.
	OnUpdate func([]models.Notification)
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := p.Log
	if logger == nil {
		logger = log.Log
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, logger)
		}
	}
}

func (p *Poller) poll(ctx context.Context, logger log.Interface) {
	events, err := p.Source.Events(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warn("fetch events")
		}
		return
	}
	if len(events) == 0 {
		return
	}
	added := p.Feed.Push(events...)
	logger.WithField("count", len(added)).Debug("events received")
	if p.OnUpdate != nil {
		p.OnUpdate(added)
	}
}
