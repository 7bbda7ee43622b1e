// Package inmemory is a test double for queue.Publisher that records
// published messages instead of sending them to a broker.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/ilofleet/sentinel/internal/queue"
)

var queueErrPublishFailed = errors.New("inmemory: simulated publish failure")

// Publisher records every message it is asked to publish.
type Publisher struct {
	mu       sync.Mutex
	Messages []queue.Message
	// FailOn, if set, causes Publish to fail for this queue name — used
	// to exercise publish-failure handling in callers.
	FailOn string
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailOn != "" && msg.Queue == p.FailOn {
		return queueErrPublishFailed
	}
	p.Messages = append(p.Messages, msg)
	return nil
}

// ByQueue returns the messages published to the named queue, in order.
func (p *Publisher) ByQueue(name string) []queue.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.Message
	for _, m := range p.Messages {
		if m.Queue == name {
			out = append(out, m)
		}
	}
	return out
}
