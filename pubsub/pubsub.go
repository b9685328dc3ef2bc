// Package pubsub routes published byte payloads to every subscription
// whose topic filter matches the published topic. Fan-out is
// synchronous on the publisher's goroutine, in registration order.
package pubsub

import (
	"errors"
	"sync"
)

// TopicNameMaxLen caps topic names; longer names are truncated at
// creation and lookup so both spellings address the same topic.
const TopicNameMaxLen = 32

var (
	ErrError             = errors.New("error")
	ErrExistTopic        = errors.New("exist topic")
	ErrNoExistTopic      = errors.New("no exist topic")
	ErrNoMemory          = errors.New("no memory")
	ErrInvalidParam      = errors.New("invalid parameters")
	ErrExistSubscriber   = errors.New("exist subscriber")
	ErrNoExistSubscriber = errors.New("no exist subscriber")
)

// Callback receives the published payload with the context the
// subscription was registered with. Callbacks run on the publisher's
// goroutine and may publish re-entrantly.
type Callback func(ctx any, msg []byte)

// Subscription pairs a topic filter with a callback. It belongs to
// exactly one topic, the first registered topic its filter matched at
// subscribe time.
type Subscription struct {
	filter string
	cb     Callback
	ctx    any
	topic  *topic
}

// Filter returns the subscription's filter.
func (s *Subscription) Filter() string {
	return s.filter
}

type topic struct {
	name string
	subs []*Subscription
}

// Bus is a topic registry. The zero value is not usable; use NewBus.
type Bus struct {
	mu     sync.Mutex
	topics []*topic
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

func truncateName(name string) string {
	if len(name) > TopicNameMaxLen {
		return name[:TopicNameMaxLen]
	}
	return name
}

func (b *Bus) findLocked(name string) *topic {
	for _, t := range b.topics {
		if t.name == name {
			return t
		}
	}
	return nil
}

// Create registers a topic. Names longer than TopicNameMaxLen are
// truncated.
func (b *Bus) Create(name string) error {
	if name == "" {
		return ErrInvalidParam
	}
	name = truncateName(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findLocked(name) != nil {
		return ErrExistTopic
	}
	b.topics = append(b.topics, &topic{name: name})
	return nil
}

// Destroy removes a topic and detaches every subscription attached to
// it. Fan-outs already in flight complete against the snapshot they
// took.
func (b *Bus) Destroy(name string) error {
	if name == "" {
		return ErrInvalidParam
	}
	name = truncateName(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range b.topics {
		if t.name != name {
			continue
		}
		for _, s := range t.subs {
			s.topic = nil
		}
		t.subs = nil
		b.topics = append(b.topics[:i], b.topics[i+1:]...)
		return nil
	}
	return ErrNoExistTopic
}

// SubscribeStatic attaches caller-owned subscription storage to the
// first registered topic the filter matches. The filter string is kept
// by reference for the subscription's lifetime.
func (b *Bus) SubscribeStatic(sub *Subscription, filter string, cb Callback, ctx any) error {
	if sub == nil || filter == "" || cb == nil {
		return ErrInvalidParam
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.topic != nil {
		return ErrExistSubscriber
	}
	for _, t := range b.topics {
		if !match(filter, t.name) && !match(t.name, filter) {
			continue
		}
		*sub = Subscription{filter: filter, cb: cb, ctx: ctx, topic: t}
		t.subs = append(t.subs, sub)
		return nil
	}
	return ErrNoExistTopic
}

// Subscribe allocates a subscription and attaches it like
// SubscribeStatic.
func (b *Bus) Subscribe(filter string, cb Callback, ctx any) (*Subscription, error) {
	sub := &Subscription{}
	if err := b.SubscribeStatic(sub, filter, cb, ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe detaches the subscription from its topic.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrInvalidParam
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := sub.topic
	if t == nil {
		return ErrNoExistSubscriber
	}
	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			sub.topic = nil
			return nil
		}
	}
	return ErrNoExistSubscriber
}

// Publish delivers msg to every matching subscription synchronously, in
// topic then subscription registration order. The published topic must
// be concrete: wildcards are rejected with ErrInvalidParam. Publishing
// where no topic matches returns ErrNoExistTopic.
func (b *Bus) Publish(topicName string, msg []byte) error {
	if topicName == "" || len(msg) == 0 || hasWildcard(topicName) {
		return ErrInvalidParam
	}
	topicName = truncateName(topicName)

	// snapshot under the lock so callbacks can subscribe, unsubscribe
	// or publish without deadlocking
	b.mu.Lock()
	matched := false
	var targets []*Subscription
	for _, t := range b.topics {
		if !match(t.name, topicName) {
			continue
		}
		matched = true
		for _, s := range t.subs {
			if match(s.filter, topicName) {
				targets = append(targets, s)
			}
		}
	}
	b.mu.Unlock()

	if !matched {
		return ErrNoExistTopic
	}
	for _, s := range targets {
		s.cb(s.ctx, msg)
	}
	return nil
}

// Count returns the number of live subscriptions matching the topic.
func (b *Bus) Count(topicName string) (int, error) {
	if topicName == "" {
		return 0, ErrInvalidParam
	}
	topicName = truncateName(topicName)

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.findLocked(topicName)
	if t == nil {
		return 0, ErrNoExistTopic
	}
	return len(t.subs), nil
}
