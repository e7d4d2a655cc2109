package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize        = 256
	DefaultSubscriberBuffer = 16
	DefaultRelayChannel     = "orderdesk:notifications:admin"

	publishTimeout = 2 * time.Second
)

var (
	ErrQueueFull      = errors.New("notification_queue_full")
	ErrHubStopped     = errors.New("notification_hub_stopped")
	ErrNotAdmin       = errors.New("notification_requires_admin")
	ErrInvalidSession = errors.New("invalid_session_id")
)

type Options struct {
	QueueSize        int
	SubscriberBuffer int
	// Redis switches the hub to cross-instance mode when set.
	Redis        *redis.Client
	RelayChannel string
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

// Hub keeps the registry of admin sessions and delivers events to them
// through a single dispatcher goroutine.
type Hub struct {
	log              *zap.Logger
	metrics          *metrics.Metrics
	redis            *redis.Client
	channel          string
	subscriberBuffer int

	mu       sync.RWMutex
	sessions map[uint64]*Subscription
	nextID   uint64

	queue   chan Event
	quit    chan struct{}
	pubsub  *redis.PubSub
	wg      sync.WaitGroup
	stopped atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
}

type Subscription struct {
	hub       *Hub
	id        uint64
	sessionID string
	ch        chan Event
	done      chan struct{}
	once      sync.Once
	doneOnce  sync.Once
}

func New(opts Options) *Hub {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	buffer := opts.SubscriberBuffer
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	channel := strings.TrimSpace(opts.RelayChannel)
	if channel == "" {
		channel = DefaultRelayChannel
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		log:              log.Named("notification.hub"),
		metrics:          opts.Metrics,
		redis:            opts.Redis,
		channel:          channel,
		subscriberBuffer: buffer,
		sessions:         make(map[uint64]*Subscription),
		queue:            make(chan Event, queueSize),
		quit:             make(chan struct{}),
	}
}

// Start launches the dispatcher and, in cross-instance mode, the relay
// subscriber. It is safe to call more than once.
func (h *Hub) Start(ctx context.Context) error {
	var startErr error
	h.startOnce.Do(func() {
		if h.redis != nil {
			pubsub := h.redis.Subscribe(ctx, h.channel)
			if _, err := pubsub.Receive(ctx); err != nil {
				_ = pubsub.Close()
				startErr = fmt.Errorf("subscribe %s: %w", h.channel, err)
				return
			}
			h.pubsub = pubsub
			h.wg.Add(1)
			go h.relay(pubsub.Channel())
		}

		h.wg.Add(1)
		go h.dispatch()
		h.log.Info("notification hub started", zap.Bool("relay", h.redis != nil))
	})
	return startErr
}

// Stop drains queued events, closes the relay and releases every
// subscription. Further broadcasts return ErrHubStopped.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		close(h.quit)
		if h.pubsub != nil {
			_ = h.pubsub.Close()
		}
		h.wg.Wait()

		h.mu.RLock()
		subs := make([]*Subscription, 0, len(h.sessions))
		for _, sub := range h.sessions {
			subs = append(subs, sub)
		}
		h.mu.RUnlock()
		for _, sub := range subs {
			sub.markDone()
		}
		h.log.Info("notification hub stopped")
	})
}

// BroadcastToAdmins queues event for delivery and returns immediately.
func (h *Hub) BroadcastToAdmins(ctx context.Context, event Event) error {
	if h == nil || h.stopped.Load() {
		return ErrHubStopped
	}
	if event.Type == "" {
		event.Type = EventTypeNewOrder
	}
	if event.EventID == "" {
		event.EventID = ulid.Make().String()
	}

	select {
	case h.queue <- event:
		return nil
	default:
		h.metrics.RecordNotificationDropped(ctx, event.Type, "queue_full")
		return ErrQueueFull
	}
}

// Register adds an admin session to the registry.
func (h *Hub) Register(sessionID string, role principal.Role) (*Subscription, error) {
	if h == nil || h.stopped.Load() {
		return nil, ErrHubStopped
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	if role != principal.RoleAdmin {
		return nil, ErrNotAdmin
	}

	sub := &Subscription{
		hub:       h,
		sessionID: sessionID,
		ch:        make(chan Event, h.subscriberBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.sessions[sub.id] = sub
	count := len(h.sessions)
	h.mu.Unlock()

	h.log.Debug("admin session registered", zap.String("session_id", sessionID), zap.Int("sessions", count))
	return sub, nil
}

func (h *Hub) SessionCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

func (h *Hub) dispatch() {
	defer h.wg.Done()
	for {
		select {
		case event := <-h.queue:
			h.route(event)
		case <-h.quit:
			for {
				select {
				case event := <-h.queue:
					h.route(event)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) route(event Event) {
	if h.redis == nil {
		h.deliverLocal(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("encode notification failed", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.redis.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.log.Warn("publish notification failed, delivering locally",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		h.deliverLocal(event)
	}
}

func (h *Hub) relay(messages <-chan *redis.Message) {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.Warn("decode relayed notification failed", zap.Error(err))
				continue
			}
			h.deliverLocal(event)
		}
	}
}

// deliverLocal sends to a snapshot of the registry. A full session buffer
// drops the event for that session only.
func (h *Hub) deliverLocal(event Event) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.sessions))
	for _, sub := range h.sessions {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.ch <- event:
			delivered++
		default:
			h.metrics.RecordNotificationDropped(context.Background(), event.Type, "slow_consumer")
			h.log.Debug("admin session buffer full", zap.String("session_id", sub.sessionID))
		}
	}
	h.metrics.RecordNotificationDelivered(context.Background(), event.Type, delivered)
	return delivered
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

// Done is closed when the subscription ends, either by Close or hub shutdown.
func (s *Subscription) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}

func (s *Subscription) SessionID() string {
	if s == nil {
		return ""
	}
	return s.sessionID
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unregister(s.id)
		s.markDone()
	})
}

func (s *Subscription) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
