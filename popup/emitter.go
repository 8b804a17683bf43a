package popup

import (
	"context"
	"sync"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/adboardhq/auth-relay/identity"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/adboardhq/auth-relay/transport/broadcast"
	"github.com/adboardhq/auth-relay/transport/messenger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Emitter runs inside the popup. After the identity provider confirms the
// credentials it builds one TokenBundle and fans it out over every transport
// at once. Individual transport failures are logged and never block the
// others; the relay write is the only one guaranteed to cross a fully
// partitioned boundary.
//
// The emitter never closes the popup itself: it reports the outcome and the
// page waits for explicit user dismissal, because closing immediately can
// race ahead of the receiving context finishing its read.
type Emitter struct {
	relay    *relay.Client
	channel  *broadcast.Channel
	endpoint *messenger.Endpoint

	// opener is the window that launched the popup, when the reference is
	// still alive. openerOrigin pins the messenger send to the initiator's
	// origin carried in the popup URL.
	opener       *messenger.Endpoint
	openerOrigin string

	idp      identity.Provider
	profiles identity.ProfileStore
	nowTime  func() time.Time
}

// EmitterOption defines a function type to modify the Emitter instance.
type EmitterOption func(*Emitter)

// WithOpener attaches the live opener window reference and the origin the
// popup was launched with. Without it the messenger transport is skipped.
func WithOpener(opener *messenger.Endpoint, openerOrigin string) EmitterOption {
	return func(e *Emitter) {
		e.opener = opener
		e.openerOrigin = openerOrigin
	}
}

// WithEmitterNowTime sets the now time function (primarily for testing)
func WithEmitterNowTime(nowFunc func() time.Time) EmitterOption {
	return func(e *Emitter) { e.nowTime = nowFunc }
}

// NewEmitter initializes an Emitter with required dependencies.
func NewEmitter(
	relayClient *relay.Client,
	channel *broadcast.Channel,
	endpoint *messenger.Endpoint,
	idp identity.Provider,
	profiles identity.ProfileStore,
	options ...EmitterOption,
) (*Emitter, error) {
	if relayClient == nil {
		return nil, errors.New("[NewEmitter] relay client is required")
	}
	if channel == nil {
		return nil, errors.New("[NewEmitter] broadcast channel is required")
	}
	if endpoint == nil {
		return nil, errors.New("[NewEmitter] messenger endpoint is required")
	}
	if idp == nil {
		return nil, errors.New("[NewEmitter] identity provider is required")
	}

	emitter := &Emitter{
		relay:    relayClient,
		channel:  channel,
		endpoint: endpoint,
		idp:      idp,
		profiles: profiles,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(emitter)
	}
	return emitter, nil
}

// Complete verifies the credentials, resolves the role, and fans the
// resulting bundle out over every transport. On explicit rejection by the
// identity provider it fans out the failure instead and returns
// ErrAuthRejected with the session state untouched.
func (e *Emitter) Complete(ctx context.Context, sessionID, email, password string) (*bundle.TokenBundle, error) {
	tokens, err := e.idp.Verify(ctx, email, password)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrAuthRejected) {
			e.Fail(ctx, sessionID, "invalid credentials")
		}
		return nil, errors.Wrap(err, "[Emitter.Complete] identity verification")
	}

	role := identity.ResolveRole(ctx, e.profiles, tokens.UserID, tokens.AccessToken)
	b := &bundle.TokenBundle{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       tokens.UserID,
		Email:        tokens.Email,
		Role:         string(role),
	}

	e.fanOut(ctx, sessionID, message.Success(sessionID, b, e.nowTime()))
	return b, nil
}

// Fail fans an explicit failure out so the initiator can stop waiting.
func (e *Emitter) Fail(ctx context.Context, sessionID, cause string) {
	e.fanOut(ctx, sessionID, message.Failure(sessionID, cause, e.nowTime()))
}

// fanOut pushes the same payload over every transport in parallel,
// unconditionally. Each transport's failure is caught and logged locally.
func (e *Emitter) fanOut(ctx context.Context, sessionID string, msg message.AuthMessage) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.relay.Write(ctx, sessionID, msg); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("relay fan-out failed")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.channel.Publish(msg)
	}()

	if e.opener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.endpoint.Send(e.opener, msg, e.openerOrigin); err != nil {
				log.Warn().Err(err).Str("sessionId", sessionID).Msg("messenger fan-out failed")
			}
		}()
	}

	wg.Wait()
}
