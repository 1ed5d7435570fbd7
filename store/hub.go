package store

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/andrewpaige1/flashcardhero-api/metrics"
)

// hub fans change notifications out to live subscriptions. Each subscription
// owns one goroutine that re-runs its query whenever it is marked dirty, so
// deliveries for one subscriber never overlap and follow commit order.
type hub struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*subscription

	// version increments on every notify. Shared queries are keyed by it so a
	// subscriber woken by a later commit never joins a query that began
	// before that commit.
	version atomic.Uint64
	group   singleflight.Group
}

type subscription struct {
	id   string
	kind string
	h    *hub

	refresh func(ctx context.Context, s *subscription)

	dirty    chan struct{}
	done     chan struct{}
	once     sync.Once
	canceled atomic.Bool
}

func newHub() *hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &hub{
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*subscription),
	}
}

// add registers a subscription and schedules its first delivery.
func (h *hub) add(kind string, refresh func(ctx context.Context, s *subscription)) *subscription {
	s := &subscription{
		id:      uuid.NewString(),
		kind:    kind,
		h:       h,
		refresh: refresh,
		dirty:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.dirty <- struct{}{}

	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()

	metrics.ActiveSubscriptions.WithLabelValues(kind).Inc()
	go s.run(h.ctx)
	return s
}

// notify marks every subscription dirty. Subscriptions that are already
// dirty coalesce the notification into their pending refresh.
func (h *hub) notify() {
	h.version.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		select {
		case s.dirty <- struct{}{}:
		default:
		}
	}
}

// shared runs fn once for all concurrent callers with the same key at the
// current version.
func (h *hub) shared(key string, fn func() (any, error)) (any, error) {
	v, err, _ := h.group.Do(key+"@"+strconv.FormatUint(h.version.Load(), 10), fn)
	return v, err
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	h.mu.Unlock()
	if ok {
		metrics.ActiveSubscriptions.WithLabelValues(s.kind).Dec()
	}
}

func (h *hub) close() {
	h.cancel()
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.dirty:
		}
		if s.canceled.Load() {
			return
		}
		s.refresh(ctx, s)
	}
}

// deliver invokes fn unless the subscription has been canceled.
func (s *subscription) deliver(fn func()) {
	if s.canceled.Load() {
		return
	}
	fn()
}

// Cancel stops deliveries. Safe to call repeatedly and from callbacks.
func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.canceled.Store(true)
		close(s.done)
		s.h.remove(s)
	})
}
