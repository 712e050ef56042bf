package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"

	"execteam/internal/corelog"
)

// Callback is invoked once per recipient on publish. Errors are caught,
// logged, and never block delivery to other recipients (spec.md §4.1).
type Callback func(*Message)

// Mirror optionally durable-mirrors published messages outside the process,
// generalizing internal/orchestrator/kafka.go's enterprise-gated producer
// into an always-compiled, config-gated one.
type Mirror interface {
	Mirror(ctx context.Context, m *Message)
	Close() error
}

// KafkaMirror writes published messages to a Kafka topic, best-effort.
type KafkaMirror struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewKafkaMirror builds a Mirror backed by a Kafka topic. Construction never
// blocks on broker connectivity; write failures are logged asynchronously.
func NewKafkaMirror(brokers []string, topic string) *KafkaMirror {
	logger := *corelog.FromContext(context.Background())
	return &KafkaMirror{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
			Async:    true,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					logger.Error().Err(err).Int("messages", len(msgs)).Msg("bus: kafka mirror write failed")
				}
			},
		},
		log: logger,
	}
}

func (k *KafkaMirror) Mirror(ctx context.Context, m *Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		k.log.Error().Err(err).Str("message_id", m.ID).Msg("bus: mirror marshal failed")
		return
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(m.ID), Value: payload})
	if err != nil {
		k.log.Error().Err(err).Str("message_id", m.ID).Msg("bus: kafka mirror write failed")
	}
}

func (k *KafkaMirror) Close() error { return k.writer.Close() }

// Bus is the process-wide message bus described in spec.md §4.1. It is safe
// for concurrent callers.
type Bus struct {
	mu sync.Mutex

	capacity int
	order    []string // history ring, oldest first
	byID     map[string]*Message

	inboxes     map[string][]string // agentID -> message ids, publish order
	subscribers map[string]Callback

	mirror Mirror
	log    zerolog.Logger
}

// New constructs a Bus with the given bounded history capacity (spec.md §6
// message_history_capacity, default 10_000). An optional Mirror durably
// mirrors every publish.
func New(capacity int, mirror Mirror) *Bus {
	if capacity <= 0 {
		capacity = 10_000
	}
	return &Bus{
		capacity:    capacity,
		byID:        make(map[string]*Message),
		inboxes:     make(map[string][]string),
		subscribers: make(map[string]Callback),
		mirror:      mirror,
		log:         *corelog.FromContext(context.Background()),
	}
}

// Subscribe registers cb as agentID's delivery callback. Re-subscription
// replaces the prior callback.
func (b *Bus) Subscribe(agentID string, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[agentID] = cb
	if _, ok := b.inboxes[agentID]; !ok {
		b.inboxes[agentID] = nil
	}
}

// Unsubscribe removes agentID's delivery callback. The inbox is left intact.
func (b *Bus) Unsubscribe(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, agentID)
}

// Publish atomically appends m to history (evicting the oldest entry if over
// capacity) and to each recipient's inbox, then invokes each subscribed
// recipient's callback. m.ID is assigned if empty. m.Timestamp is assigned if
// zero. Returns the published message (a defensive copy).
func (b *Bus) Publish(m *Message) *Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.ReadBy == nil {
		m.ReadBy = make(map[string]bool)
	}
	stored := m.clone()

	var callbacks []Callback
	b.mu.Lock()
	b.order = append(b.order, stored.ID)
	b.byID[stored.ID] = stored
	if len(b.order) > b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.byID, oldest)
	}
	for _, rid := range stored.RecipientAgentIDs {
		// Unknown recipients silently create an inbox; they may subscribe later.
		b.inboxes[rid] = append(b.inboxes[rid], stored.ID)
		if cb, ok := b.subscribers[rid]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	b.mu.Unlock()

	if b.mirror != nil {
		b.mirror.Mirror(context.Background(), stored)
	}

	for _, cb := range callbacks {
		b.invoke(cb, stored)
	}
	return stored.clone()
}

// invoke calls cb, recovering from panics so one misbehaving recipient never
// prevents delivery to others (spec.md §4.1, §7).
func (b *Bus) invoke(cb Callback, m *Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("message_id", m.ID).Msg("bus: subscriber callback panicked")
		}
	}()
	cb(m.clone())
}

// MessagesFor returns agentID's inbox messages in insertion order. When
// unreadOnly is true, only messages not yet read by agentID are returned.
// Ids that have been evicted from the global history resolve to nothing and
// are skipped (see SPEC_FULL.md open-question decision on eviction).
func (b *Bus) MessagesFor(agentID string, unreadOnly bool) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.inboxes[agentID]
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		m, ok := b.byID[id]
		if !ok {
			continue
		}
		if unreadOnly && m.IsReadBy(agentID) {
			continue
		}
		out = append(out, m.clone())
	}
	return out
}

// GetByID returns the message with the given id, or nil if it is unknown or
// has been evicted from history.
func (b *Bus) GetByID(messageID string) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.byID[messageID]
	if !ok {
		return nil
	}
	return m.clone()
}

// MarkRead marks messageID as read by agentID. Idempotent; a no-op if the
// message has been evicted from history.
func (b *Bus) MarkRead(messageID, agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.byID[messageID]; ok {
		m.ReadBy[agentID] = true
	}
}

// ClearHistory empties the global history and every per-agent inbox.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = nil
	b.byID = make(map[string]*Message)
	for k := range b.inboxes {
		b.inboxes[k] = nil
	}
}

// Close releases the optional mirror's resources.
func (b *Bus) Close() error {
	if b.mirror != nil {
		return b.mirror.Close()
	}
	return nil
}
