package study

import (
	"sync"
	"time"
)

type Topic string

const (
	TopicContent   Topic = "content"
	TopicQuestions Topic = "questions"
	TopicAttempts  Topic = "attempts"
	TopicStore     Topic = "store"
)

// Change tells subscribers which list to re-read; ID is the affected
// subject, module or attempt and zero when the whole topic changed.
type Change struct {
	Topic Topic     `json:"topic"`
	ID    int64     `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Broker fans changes out to subscribers. Slow subscribers lose changes
// instead of blocking writers.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Change
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Change)}
}

// Subscribe returns a change channel and a cancel func that closes it.
func (b *Broker) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(topic Topic, id int64) {
	change := Change{Topic: topic, ID: id, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
