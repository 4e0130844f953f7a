package availability

import (
	"sync"
	"time"

	"fieldbooking/internal/pkg/logger"

	"go.uber.org/zap"
)

// Topic is the (sub-field, date) pair a client watches.
type Topic struct {
	SubFieldID int64
	Date       string
}

type Event struct {
	SubFieldID int64     `json:"sub_field_id"`
	Date       string    `json:"date"`
	At         time.Time `json:"at"`
}

// Subscriber receives change events for one topic. Events are signals, not deltas:
// when the buffer is full a pending event already covers the new one and it is dropped.
type Subscriber struct {
	topic  Topic
	events chan Event
	once   sync.Once
}

func (s *Subscriber) Events() <-chan Event { return s.events }

func (s *Subscriber) Topic() Topic { return s.topic }

func (s *Subscriber) close() { s.once.Do(func() { close(s.events) }) }

type Hub struct {
	mutex  sync.RWMutex
	topics map[Topic]map[*Subscriber]struct{}
	closed bool
	logger *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[Topic]map[*Subscriber]struct{}),
		logger: logger.OrNop(log),
	}
}

// Subscribe registers a subscriber for topic. It returns nil after Close.
func (h *Hub) Subscribe(topic Topic) *Subscriber {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return nil
	}
	sub := &Subscriber{topic: topic, events: make(chan Event, 1)}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	sub.close()
}

// Publish notifies every subscriber of (subFieldID, date). It never blocks.
func (h *Hub) Publish(subFieldID int64, date string) {
	topic := Topic{SubFieldID: subFieldID, Date: date}
	ev := Event{SubFieldID: subFieldID, Date: date, At: time.Now().UTC()}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	delivered := 0
	for sub := range h.topics[topic] {
		select {
		case sub.events <- ev:
			delivered++
		default:
		}
	}
	if delivered > 0 {
		h.logger.Debug("availability change published",
			zap.Int64("sub_field_id", subFieldID),
			zap.String("date", date),
			zap.Int("subscribers", delivered),
		)
	}
}

func (h *Hub) SubscriberCount(topic Topic) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.topics[topic])
}

// Close ends every subscription; their Events channels are closed.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	for topic, subs := range h.topics {
		for sub := range subs {
			sub.close()
		}
		delete(h.topics, topic)
	}
}
