package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/leandro-lugaresi/hub"
)

const (
	topicCounts = "counts.changed"
	fieldCounts = "counts"

	defaultObserverBuffer = 16
)

// Broadcaster fans queue counts out to notification observers. It never
// touches queue state.
type Broadcaster struct {
	hub    *hub.Hub
	log    *slog.Logger
	buffer int

	// mu orders hub publishes against unsubscribes; the hub closes a
	// subscriber's channel on unsubscribe.
	mu     sync.RWMutex
	last   domain.QueueCounts
	closed bool
}

func NewBroadcaster(log *slog.Logger, buffer int) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = defaultObserverBuffer
	}
	return &Broadcaster{
		hub:    hub.New(),
		log:    log,
		buffer: buffer,
	}
}

// Publish stores the snapshot and hands it to every observer without blocking.
// It is a no-op once the broadcaster is closed.
func (b *Broadcaster) Publish(counts domain.QueueCounts) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = counts
	b.hub.Publish(hub.Message{
		Name:   topicCounts,
		Fields: hub.Fields{fieldCounts: counts},
	})
}

func (b *Broadcaster) Last() domain.QueueCounts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Subscribe registers an observer. A nil department yields only the global counts.
// Observers of a closed broadcaster see ErrObserverClosed on the first Next.
func (b *Broadcaster) Subscribe(department *int64) *Observer {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.hub.NonBlockingSubscribe(b.buffer, topicCounts)
	if b.closed {
		b.hub.Unsubscribe(sub)
	}
	return &Observer{
		broadcaster: b,
		sub:         sub,
		department:  department,
	}
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.hub.Close()
}

func (b *Broadcaster) unsubscribe(sub hub.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.hub.Unsubscribe(sub)
}

type Observer struct {
	broadcaster *Broadcaster
	sub         hub.Subscription
	department  *int64
	closeOnce   sync.Once
}

// Snapshot renders the most recent counts for this observer.
func (o *Observer) Snapshot() []domain.Event {
	return o.broadcaster.Last().Events(o.department)
}

// NextCounts waits for the next change and returns the latest snapshot.
// Pending notifications are collapsed, so an overrun buffer never leaves the
// observer behind the broadcaster.
func (o *Observer) NextCounts(ctx context.Context) (domain.QueueCounts, error) {
	for {
		select {
		case <-ctx.Done():
			return domain.QueueCounts{}, ctx.Err()
		case msg, ok := <-o.sub.Receiver:
			if !ok {
				return domain.QueueCounts{}, ErrObserverClosed
			}
			if _, ok := msg.Fields[fieldCounts].(domain.QueueCounts); !ok {
				o.broadcaster.log.Warn("unexpected counts payload", slog.String("topic", msg.Name))
				continue
			}
			o.drainPending()
			return o.broadcaster.Last(), nil
		}
	}
}

func (o *Observer) drainPending() {
	for {
		select {
		case _, ok := <-o.sub.Receiver:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Next waits for the next snapshot and renders it as observer events.
func (o *Observer) Next(ctx context.Context) ([]domain.Event, error) {
	counts, err := o.NextCounts(ctx)
	if err != nil {
		return nil, err
	}
	return counts.Events(o.department), nil
}

func (o *Observer) Close() {
	o.closeOnce.Do(func() {
		o.broadcaster.unsubscribe(o.sub)
	})
}
