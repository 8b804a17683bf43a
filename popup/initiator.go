// Package popup implements the two ends of the popup login handshake: the
// Initiator runs in the context that needs a session, the Emitter runs
// inside the popup after credential verification. Between them sit three
// redundant transports (server relay, broadcast channel, window messenger)
// racing to deliver the same result; the initiator's single-assignment latch
// turns their at-least-once delivery into an exactly-once effect.
package popup

import (
	"context"
	"sync"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/adboardhq/auth-relay/tokenstore"
	"github.com/adboardhq/auth-relay/transport/broadcast"
	"github.com/adboardhq/auth-relay/transport/messenger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultPollInterval       = 500 * time.Millisecond
	defaultAuthTimeout        = 5 * time.Minute
	defaultCloseGrace         = 2 * time.Second
	defaultCloseCheckInterval = time.Second
)

// Transport names reported in a Result.
const (
	TransportRelay     = "relay"
	TransportBroadcast = "broadcast"
	TransportMessenger = "messenger"
)

// Result is a resolved popup login.
type Result struct {
	Bundle    *bundle.TokenBundle
	SessionID string
	// Transport names the channel that won the race.
	Transport string
}

// Initiator drives one popup auth attempt: open the popup, listen on every
// transport, adopt the first valid result, tear everything down.
type Initiator struct {
	relay    *relay.Client
	channel  *broadcast.Channel
	endpoint *messenger.Endpoint
	store    *tokenstore.Store
	opener   Opener

	pollInterval       time.Duration
	timeout            time.Duration
	closeGrace         time.Duration
	closeCheckInterval time.Duration
	nowTime            func() time.Time
}

// InitiatorOption defines a function type to modify the Initiator instance.
type InitiatorOption func(*Initiator)

// WithPollInterval sets the relay polling cadence.
func WithPollInterval(d time.Duration) InitiatorOption {
	return func(i *Initiator) { i.pollInterval = d }
}

// WithTimeout sets the hard wall-clock bound on the whole attempt,
// independent of popup open/close events.
func WithTimeout(d time.Duration) InitiatorOption {
	return func(i *Initiator) { i.timeout = d }
}

// WithCloseGrace sets how long to wait after the popup closes before the
// final relay recheck.
func WithCloseGrace(d time.Duration) InitiatorOption {
	return func(i *Initiator) { i.closeGrace = d }
}

// WithCloseCheckInterval sets how often the popup handle is polled for the
// closed state.
func WithCloseCheckInterval(d time.Duration) InitiatorOption {
	return func(i *Initiator) { i.closeCheckInterval = d }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InitiatorOption {
	return func(i *Initiator) { i.nowTime = nowFunc }
}

// NewInitiator initializes an Initiator with required dependencies.
func NewInitiator(
	relayClient *relay.Client,
	channel *broadcast.Channel,
	endpoint *messenger.Endpoint,
	store *tokenstore.Store,
	opener Opener,
	options ...InitiatorOption,
) (*Initiator, error) {
	if relayClient == nil {
		return nil, errors.New("[NewInitiator] relay client is required")
	}
	if channel == nil {
		return nil, errors.New("[NewInitiator] broadcast channel is required")
	}
	if endpoint == nil {
		return nil, errors.New("[NewInitiator] messenger endpoint is required")
	}
	if store == nil {
		return nil, errors.New("[NewInitiator] token store is required")
	}
	if opener == nil {
		return nil, errors.New("[NewInitiator] opener is required")
	}

	initiator := &Initiator{
		relay:              relayClient,
		channel:            channel,
		endpoint:           endpoint,
		store:              store,
		opener:             opener,
		pollInterval:       defaultPollInterval,
		timeout:            defaultAuthTimeout,
		closeGrace:         defaultCloseGrace,
		closeCheckInterval: defaultCloseCheckInterval,
		nowTime:            time.Now,
	}
	for _, opt := range options {
		opt(initiator)
	}
	return initiator, nil
}

type outcome struct {
	result *Result
	err    error
}

// Authenticate runs one complete popup login attempt. It returns the first
// valid result from any transport, persisted to the token store, or a
// terminal error (popup blocked, explicit rejection, popup closed, timeout).
// All listeners and timers are torn down as a unit before it returns.
func (i *Initiator) Authenticate(ctx context.Context) (*Result, error) {
	sessionID := uuid.New().String()

	// Register the relay session before the popup exists so the emitter's
	// write has somewhere to land. A failure here kills only the relay
	// transport; the in-process transports still cover the attempt.
	if err := i.relay.Open(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("relay session open failed, relying on remaining transports")
	}

	win, err := i.opener(sessionID, i.endpoint.Origin())
	if err != nil {
		return nil, errors.Wrap(err, "[Initiator.Authenticate] opener")
	}
	if win == nil {
		// Blocked by the platform: fail before any listener starts.
		return nil, autherrors.ErrPopupBlocked
	}

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The first-success latch: every transport funnels into settle, only
	// the first observation has any effect, all later deliveries
	// (including ones already in flight) are discarded.
	resultCh := make(chan outcome, 1)
	var once sync.Once
	settle := func(result *Result, err error) {
		once.Do(func() {
			resultCh <- outcome{result: result, err: err}
		})
	}

	observe := func(transport string, msg message.AuthMessage) {
		switch msg.Type {
		case message.TypeAuthError:
			settle(nil, autherrors.Wrapf(autherrors.ErrAuthRejected, "%s", msg.Error))
		case message.TypeAuthSuccess:
			b, err := msg.Bundle()
			if err != nil {
				log.Debug().Err(err).Str("transport", transport).Msg("malformed success payload ignored")
				return
			}
			settle(&Result{Bundle: b, SessionID: sessionID, Transport: transport}, nil)
		}
	}

	unsubscribeBroadcast := i.channel.Subscribe(func(msg message.AuthMessage) {
		observe(TransportBroadcast, msg)
	})
	defer unsubscribeBroadcast()

	unsubscribeMessenger := i.endpoint.OnMessage(messenger.FromWindow(win.Endpoint()), func(env messenger.Envelope) {
		observe(TransportMessenger, env.Data)
	})
	defer unsubscribeMessenger()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		i.pollRelay(listenCtx, sessionID, observe)
	}()
	go func() {
		defer wg.Done()
		i.watchClose(listenCtx, win, sessionID, observe, settle)
	}()
	defer wg.Wait()

	timer := time.NewTimer(i.timeout)
	defer timer.Stop()

	select {
	case out := <-resultCh:
		cancel()
		if out.err != nil {
			return nil, out.err
		}
		if stamped, err := i.store.Save(ctx, out.result.Bundle); err != nil {
			log.Warn().Err(err).Msg("token persistence degraded to memory only")
		} else {
			out.result.Bundle = stamped
		}
		return out.result, nil
	case <-timer.C:
		cancel()
		settle(nil, autherrors.ErrAuthTimeout) // latch so stragglers are discarded
		return nil, autherrors.ErrAuthTimeout
	case <-ctx.Done():
		cancel()
		settle(nil, ctx.Err())
		return nil, ctx.Err()
	}
}

// pollRelay drives the fixed-interval poller against the relay store.
// Transient errors (including a missing session when Open failed) are
// logged and retried; only a delivered payload resolves the race.
func (i *Initiator) pollRelay(ctx context.Context, sessionID string, observe func(string, message.AuthMessage)) {
	ticker := time.NewTicker(i.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := i.relay.Read(ctx, sessionID)
			if err != nil {
				log.Debug().Err(err).Str("sessionId", sessionID).Msg("relay poll failed")
				continue
			}
			if payload != nil {
				observe(TransportRelay, *payload)
			}
		}
	}
}

// watchClose detects the user dismissing the popup before success. The close
// signal is unreliable, so after the grace period it does one final relay
// recheck to catch a write that was still in flight when the popup went
// away.
func (i *Initiator) watchClose(
	ctx context.Context,
	win Window,
	sessionID string,
	observe func(string, message.AuthMessage),
	settle func(*Result, error),
) {
	ticker := time.NewTicker(i.closeCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !win.Closed() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(i.closeGrace):
			}
			payload, err := i.relay.Read(ctx, sessionID)
			if err == nil && payload != nil {
				observe(TransportRelay, *payload)
				return
			}
			settle(nil, autherrors.ErrPopupClosed)
			return
		}
	}
}
