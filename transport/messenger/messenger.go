// Package messenger provides origin-validated point-to-point messaging
// between a context and its opener or embedding parent. Inbound envelopes
// are checked against an origin allow-list before any handler sees them;
// anything else is dropped with a diagnostic log and never reaches business
// logic.
package messenger

import (
	"sync"

	"github.com/adboardhq/auth-relay/internal/config"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/rs/zerolog/log"
)

// TargetAny matches any receiver origin, mirroring the "*" target of the
// underlying platform primitive. Use a concrete origin whenever the payload
// carries tokens.
const TargetAny = "*"

// Envelope is a delivered message plus its provenance.
type Envelope struct {
	// From is the sending endpoint (the "window reference").
	From *Endpoint
	// Origin is the sender's origin as observed by the receiver.
	Origin string
	// Data is the validated payload.
	Data message.AuthMessage
}

// Endpoint is one context's message port. Sends go to an explicit target
// endpoint; receives fan out to the registered handlers after origin
// validation.
type Endpoint struct {
	origin  string
	allowed config.AllowedOrigins

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Envelope)
}

// NewEndpoint creates a port for a context at the given origin. The
// allow-list governs which senders this endpoint accepts.
func NewEndpoint(origin string, allowed config.AllowedOrigins) *Endpoint {
	return &Endpoint{
		origin:   origin,
		allowed:  allowed,
		handlers: make(map[int]func(Envelope)),
	}
}

// Origin returns the endpoint's own origin.
func (e *Endpoint) Origin() string { return e.origin }

// Send delivers a message to the target endpoint. targetOrigin must match
// the target's actual origin (or be TargetAny) or the message is not
// delivered, mirroring the platform's receiver-side origin pinning.
func (e *Endpoint) Send(target *Endpoint, msg message.AuthMessage, targetOrigin string) error {
	if target == nil {
		return autherrors.Wrapf(autherrors.ErrChannelClosed, "[Endpoint.Send] no target window")
	}
	if targetOrigin != TargetAny && targetOrigin != target.origin {
		log.Debug().
			Str("targetOrigin", targetOrigin).
			Str("actualOrigin", target.origin).
			Msg("message not delivered: target origin mismatch")
		return nil
	}
	target.receive(Envelope{From: e, Origin: e.origin, Data: msg})
	return nil
}

// OnMessage registers a handler for validated inbound envelopes and returns
// its unsubscribe function. The optional predicate filters envelopes before
// the handler runs (e.g. "only from this window reference").
func (e *Endpoint) OnMessage(predicate func(Envelope) bool, handler func(Envelope)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = func(env Envelope) {
		if predicate != nil && !predicate(env) {
			return
		}
		handler(env)
	}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

func (e *Endpoint) receive(env Envelope) {
	if !e.allowed.IsAllowedOrigin(env.Origin) {
		log.Warn().
			Str("origin", env.Origin).
			Str("type", string(env.Data.Type)).
			Msg("dropped message from disallowed origin")
		return
	}
	switch env.Data.Type {
	case message.TypeAuthSuccess, message.TypeAuthError, message.TypeAuthRequest, message.TypeAuthUpdate:
	default:
		log.Debug().Str("type", string(env.Data.Type)).Msg("ignored unrecognized message type")
		return
	}

	e.mu.Lock()
	handlers := make([]func(Envelope), 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}
}

// FromWindow is a predicate matching envelopes sent by a specific endpoint.
func FromWindow(win *Endpoint) func(Envelope) bool {
	return func(env Envelope) bool {
		return env.From == win
	}
}
