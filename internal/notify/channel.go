package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// ErrSinkClosed is returned by Notify after Close.
var ErrSinkClosed = errors.New("notification sink is closed")

// DefaultListenerBuffer is the channel capacity of each subscriber.
const DefaultListenerBuffer = 10

// ChannelSink fans change descriptors out to subscriber channels. Sends
// never block: a subscriber whose buffer is full misses the change and the
// drop is counted.
type ChannelSink struct {
	mu        sync.Mutex
	listeners []chan types.ChangeDescriptor
	buffer    int
	dropped   int
	closed    bool
}

// NewChannelSink returns a sink whose subscribers buffer up to buffer
// changes. A non-positive buffer uses DefaultListenerBuffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = DefaultListenerBuffer
	}
	return &ChannelSink{buffer: buffer}
}

// Subscribe returns a channel that receives changes. The channel is closed
// when the sink is closed.
func (c *ChannelSink) Subscribe() (<-chan types.ChangeDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrSinkClosed
	}
	ch := make(chan types.ChangeDescriptor, c.buffer)
	c.listeners = append(c.listeners, ch)
	return ch, nil
}

// Notify delivers change to every subscriber without blocking.
func (c *ChannelSink) Notify(ctx context.Context, change types.ChangeDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSinkClosed
	}
	for _, ch := range c.listeners {
		select {
		case ch <- change:
		default:
			c.dropped++
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (c *ChannelSink) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes every subscriber channel. Idempotent.
func (c *ChannelSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.listeners {
		close(ch)
	}
	c.listeners = nil
}
