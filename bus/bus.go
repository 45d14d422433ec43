// Package bus is an in-process publish/subscribe channel for rigid body
// batches, keyed by topic name.
package bus

import (
	"sync"

	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/mocap"
)

var log = event.Log

// QueueDepth is the number of batches kept for a slow subscriber. When the
// queue is full the oldest batch is dropped.
const QueueDepth = 10

// Handler is called once per batch, in publishing order. Calls for one
// subscription never overlap.
type Handler func(mocap.RigidBodyArray)

type subscription struct {
	topic   string
	handler Handler
	queue   chan mocap.RigidBodyArray
	done    chan struct{}
}

// Bus dispatches published batches to the subscribers of a topic.
type Bus struct {
	mutex  sync.Mutex
	subs   map[string][]*subscription
	latest map[string]mocap.RigidBodyArray
	closed bool
	wg     sync.WaitGroup
}

// New returns an empty bus
func New() *Bus {
	return &Bus{
		subs:   make(map[string][]*subscription),
		latest: make(map[string]mocap.RigidBodyArray),
	}
}

// Subscribe registers handler for topic. The returned function cancels the
// subscription; batches still queued are dropped.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	sub := &subscription{
		topic:   topic,
		handler: handler,
		queue:   make(chan mocap.RigidBodyArray, QueueDepth),
		done:    make(chan struct{}),
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return func() {}
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.wg.Add(1)
	go b.dispatch(sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Bus) dispatch(sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case batch := <-sub.queue:
			sub.handler(batch)
		case <-sub.done:
			return
		}
	}
}

func (b *Bus) remove(sub *subscription) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			close(sub.done)
			return
		}
	}
}

// Publish hands batch to every subscriber of topic and records it as the
// latest batch of the topic. It never blocks on a subscriber.
func (b *Bus) Publish(topic string, batch mocap.RigidBodyArray) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.latest[topic] = batch
	for _, sub := range b.subs[topic] {
		if sub.push(batch) {
			log.WithFields(event.Fields{"topic": topic}).Warn("Subscriber queue full, dropped oldest batch")
		}
	}
}

// push enqueues batch, making room by dropping the oldest queued batch.
func (s *subscription) push(batch mocap.RigidBodyArray) (dropped bool) {
	for {
		select {
		case s.queue <- batch:
			return dropped
		default:
		}
		select {
		case <-s.queue:
			dropped = true
		default:
		}
	}
}

// Latest returns the last batch published on topic
func (b *Bus) Latest(topic string) (mocap.RigidBodyArray, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	batch, ok := b.latest[topic]
	return batch, ok
}

// Close cancels all subscriptions and waits for running handlers to return
func (b *Bus) Close() {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, sub := range subs {
			close(sub.done)
		}
		delete(b.subs, topic)
	}
	b.mutex.Unlock()
	b.wg.Wait()
}
