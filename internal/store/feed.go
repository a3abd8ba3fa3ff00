package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"rently/internal/core"
	applog "rently/internal/log"
)

// Feed is a Subscription with latest-wins delivery: a consumer that falls
// behind sees the newest snapshot, never a backlog.
type Feed struct {
	mu      sync.Mutex
	ch      chan Snapshot
	closed  bool
	lastSeq uint64
	onClose func()
}

var _ Subscription = (*Feed)(nil)

// NewFeed returns an open feed. onClose runs once, after the feed is closed.
func NewFeed(onClose func()) *Feed {
	return &Feed{ch: make(chan Snapshot, 1), onClose: onClose}
}

func (f *Feed) C() <-chan Snapshot { return f.ch }

// Publish replaces any undelivered snapshot with s. It never blocks. A
// snapshot whose Seq is older than one already published is dropped.
func (f *Feed) Publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if s.Seq != 0 {
		if s.Seq < f.lastSeq {
			return
		}
		f.lastSeq = s.Seq
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

// Close stops delivery and closes the channel. It is safe to call twice.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.ch)
	f.mu.Unlock()

	if f.onClose != nil {
		f.onClose()
	}
}

// CloseOnDone ties the feed's lifetime to ctx.
func (f *Feed) CloseOnDone(ctx context.Context) {
	context.AfterFunc(ctx, f.Close)
}

// LoadFunc reads the current full record list of an owner.
type LoadFunc func(ctx context.Context, ownerID string) ([]core.Transaction, error)

// Hub fans snapshots out to every feed of an owner. Backends call Notify after
// each successful write.
type Hub struct {
	mu    sync.Mutex
	feeds map[string]map[*Feed]struct{}
	load  LoadFunc
	now   func() time.Time
	seq   atomic.Uint64
}

func NewHub(load LoadFunc) *Hub {
	return &Hub{
		feeds: make(map[string]map[*Feed]struct{}),
		load:  load,
		now:   time.Now,
	}
}

// Subscribe registers a feed for ownerID and primes it with the current list.
func (h *Hub) Subscribe(ctx context.Context, ownerID string) (Subscription, error) {
	if err := core.ValidateOwner(ownerID); err != nil {
		return nil, &core.StoreReadError{Op: "subscribe", Err: err}
	}

	var feed *Feed
	feed = NewFeed(func() { h.remove(ownerID, feed) })

	h.mu.Lock()
	if h.feeds[ownerID] == nil {
		h.feeds[ownerID] = make(map[*Feed]struct{})
	}
	h.feeds[ownerID][feed] = struct{}{}
	h.mu.Unlock()

	feed.Publish(h.snapshot(ctx, ownerID))
	feed.CloseOnDone(ctx)
	return feed, nil
}

// Notify reloads ownerID's records and pushes them to every subscriber.
func (h *Hub) Notify(ctx context.Context, ownerID string) {
	h.mu.Lock()
	targets := make([]*Feed, 0, len(h.feeds[ownerID]))
	for f := range h.feeds[ownerID] {
		targets = append(targets, f)
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	snap := h.snapshot(ctx, ownerID)
	for _, f := range targets {
		s := snap
		s.Records = slices.Clone(snap.Records)
		f.Publish(s)
	}
}

// Subscribers reports how many feeds are open for ownerID.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds[ownerID])
}

func (h *Hub) snapshot(ctx context.Context, ownerID string) Snapshot {
	// Taken before the load so a slow read cannot overwrite a newer one.
	seq := h.seq.Add(1)
	// Notifications outlive the request that triggered them.
	records, err := h.load(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot load failed",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldOperation, applog.OpRead,
			applog.FieldOwner, ownerID,
			applog.FieldError, err)
		return Snapshot{OwnerID: ownerID, Err: &core.StoreReadError{Op: "subscribe", Err: err}, At: h.now(), Seq: seq}
	}
	return Snapshot{OwnerID: ownerID, Records: records, At: h.now(), Seq: seq}
}

func (h *Hub) remove(ownerID string, f *Feed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.feeds[ownerID], f)
	if len(h.feeds[ownerID]) == 0 {
		delete(h.feeds, ownerID)
	}
}
