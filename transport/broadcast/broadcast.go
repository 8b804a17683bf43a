// Package broadcast provides best-effort same-origin fan-out messaging that
// is independent of window references. Delivery is at-most-once per
// subscriber and the facility may be entirely absent at runtime: callers
// must treat non-delivery as a normal outcome and rely on the redundancy of
// the other transports.
package broadcast

import (
	"sync"

	"github.com/adboardhq/auth-relay/message"
	"github.com/rs/zerolog/log"
)

// Hub routes published messages between channels sharing a name. A nil Hub
// models a runtime without broadcast support: channels obtained from it
// publish into the void and never deliver.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]map[int]*subscriber
}

type subscriber struct {
	owner   *Channel
	handler func(message.AuthMessage)
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[int]*subscriber)}
}

// Channel opens a named channel endpoint for one participating context.
// Safe on a nil Hub.
func (h *Hub) Channel(name string) *Channel {
	return &Channel{hub: h, name: name}
}

// Channel is one context's handle on a named broadcast channel. Publishes
// from a channel are not delivered back to its own subscriptions.
type Channel struct {
	hub  *Hub
	name string
}

// Publish fans the message out to every other subscriber of the channel.
// Best-effort: on an unsupported runtime this is a silent no-op.
func (c *Channel) Publish(msg message.AuthMessage) {
	if c.hub == nil {
		log.Debug().Str("channel", c.name).Msg("broadcast unsupported, publish dropped")
		return
	}
	c.hub.mu.Lock()
	subs := make([]*subscriber, 0, len(c.hub.channels[c.name]))
	for _, sub := range c.hub.channels[c.name] {
		if sub.owner == c {
			continue
		}
		subs = append(subs, sub)
	}
	c.hub.mu.Unlock()

	for _, sub := range subs {
		sub.handler(msg)
	}
}

// Subscribe registers a handler and returns its unsubscribe function. On an
// unsupported runtime the handler is never invoked and the unsubscribe is a
// no-op.
func (c *Channel) Subscribe(handler func(message.AuthMessage)) (unsubscribe func()) {
	if c.hub == nil {
		return func() {}
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.hub.channels[c.name] == nil {
		c.hub.channels[c.name] = make(map[int]*subscriber)
	}
	id := c.hub.nextID
	c.hub.nextID++
	c.hub.channels[c.name][id] = &subscriber{owner: c, handler: handler}
	return func() {
		c.hub.mu.Lock()
		defer c.hub.mu.Unlock()
		delete(c.hub.channels[c.name], id)
	}
}
