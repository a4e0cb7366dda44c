// Package eventbus is a tiny in-process pub/sub used to decouple the
// resolver framework from anything that wants to observe it: logging,
// metrics scraping, the RPZ hit log.
package eventbus

import (
	"context"
	"sync"
)

type Topic string

const (
	TopicZone     Topic = "zone"
	TopicResolve  Topic = "resolve"
	TopicServer   Topic = "server"
	TopicCookie   Topic = "cookie"
	TopicRPZ      Topic = "rpz"
	TopicRateLimit Topic = "ratelimit"
)

type Event struct {
	Topic Topic
	Data  interface{}
}

type Subscriber struct {
	Ch   <-chan Event
	stop context.CancelFunc
}

// Bus fans published events out to every active subscriber of a topic.
// A slow subscriber drops events rather than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Event
	buf  int
}

// New creates a Bus whose per-subscriber channel buffer is buf events
// deep.
func New(buf int) *Bus {
	return &Bus{subs: make(map[Topic][]chan Event), buf: buf}
}

// Publish delivers data to every current subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic Topic, data interface{}) {
	b.mu.RLock()
	chs := b.subs[topic]
	b.mu.RUnlock()
	for _, ch := range chs {
		select {
		case ch <- Event{Topic: topic, Data: data}:
		default:
		}
	}
}

// Subscribe registers for topic until ctx is canceled or Close is called.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) *Subscriber {
	ch := make(chan Event, b.buf)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		<-cctx.Done()
		b.mu.Lock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()
	return &Subscriber{Ch: ch, stop: cancel}
}

func (s *Subscriber) Close() {
	if s.stop != nil {
		s.stop()
	}
}
