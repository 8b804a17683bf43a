package popup_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adboardhq/auth-relay/identity"
	"github.com/adboardhq/auth-relay/identity/identityfakes"
	"github.com/adboardhq/auth-relay/internal/config"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/popup"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/adboardhq/auth-relay/server"
	"github.com/adboardhq/auth-relay/transport/broadcast"
	"github.com/adboardhq/auth-relay/transport/messenger"
	"github.com/stretchr/testify/require"
)

type emitterFixture struct {
	relayClient   *relay.Client
	hub           *broadcast.Hub
	popupEndpoint *messenger.Endpoint
	openerWindow  *messenger.Endpoint
	idp           *identityfakes.FakeProvider
	profiles      *identityfakes.FakeProfileStore
}

func setupEmitterFixture(t *testing.T) *emitterFixture {
	t.Helper()

	repo := relay.NewInMemoryRepo(relay.WithSessionTTL(time.Minute))
	srv, err := server.New(config.New(), repo)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	idp := identityfakes.NewFakeProvider()
	idp.AddUser("jane.doe@example.com", "password123", identity.Tokens{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		UserID:       "user-1",
		Email:        "jane.doe@example.com",
	})

	return &emitterFixture{
		relayClient:   relay.NewClient(ts.URL, relay.WithHTTPClient(ts.Client())),
		hub:           broadcast.NewHub(),
		popupEndpoint: messenger.NewEndpoint(appOrigin, testAllowed),
		openerWindow:  messenger.NewEndpoint(appOrigin, testAllowed),
		idp:           idp,
		profiles:      identityfakes.NewFakeProfileStore(),
	}
}

func (f *emitterFixture) newEmitter(t *testing.T, options ...popup.EmitterOption) *popup.Emitter {
	t.Helper()
	emitter, err := popup.NewEmitter(
		f.relayClient,
		f.hub.Channel(channelName),
		f.popupEndpoint,
		f.idp,
		f.profiles,
		options...,
	)
	require.NoError(t, err)
	return emitter
}

func TestCompleteFansOutOverEveryTransport(t *testing.T) {
	f := setupEmitterFixture(t)
	ctx := context.Background()
	f.profiles.SetRole("user-1", identity.RoleAgency)

	var broadcastGot []message.AuthMessage
	unsubscribe := f.hub.Channel(channelName).Subscribe(func(m message.AuthMessage) {
		broadcastGot = append(broadcastGot, m)
	})
	defer unsubscribe()

	var messengerGot []messenger.Envelope
	unsubMsg := f.openerWindow.OnMessage(nil, func(env messenger.Envelope) {
		messengerGot = append(messengerGot, env)
	})
	defer unsubMsg()

	require.NoError(t, f.relayClient.Open(ctx, "s1"))

	emitter := f.newEmitter(t, popup.WithOpener(f.openerWindow, appOrigin))
	b, err := emitter.Complete(ctx, "s1", "jane.doe@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "agency", b.Role)

	// Relay received the authoritative write.
	payload, err := f.relayClient.Read(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Equal(t, message.TypeAuthSuccess, payload.Type)
	require.Equal(t, "access-123", payload.AccessToken)
	require.Equal(t, "s1", payload.SessionID)

	// Broadcast and messenger carried the same payload.
	require.Len(t, broadcastGot, 1)
	require.Equal(t, "access-123", broadcastGot[0].AccessToken)
	require.Len(t, messengerGot, 1)
	require.Equal(t, "access-123", messengerGot[0].Data.AccessToken)
}

func TestCompleteWithoutOpenerSkipsMessenger(t *testing.T) {
	f := setupEmitterFixture(t)
	ctx := context.Background()
	require.NoError(t, f.relayClient.Open(ctx, "s1"))

	emitter := f.newEmitter(t) // no live opener reference
	_, err := emitter.Complete(ctx, "s1", "jane.doe@example.com", "password123")
	require.NoError(t, err)

	payload, err := f.relayClient.Read(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, payload)
}

func TestCompleteRelayFailureDoesNotBlockOthers(t *testing.T) {
	f := setupEmitterFixture(t)
	ctx := context.Background()

	var broadcastGot []message.AuthMessage
	unsubscribe := f.hub.Channel(channelName).Subscribe(func(m message.AuthMessage) {
		broadcastGot = append(broadcastGot, m)
	})
	defer unsubscribe()

	// Session was never opened: the relay write fails, the rest go through.
	emitter := f.newEmitter(t)
	b, err := emitter.Complete(ctx, "never-opened", "jane.doe@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Len(t, broadcastGot, 1)
}

func TestCompleteRejectedCredentialsFanOutFailure(t *testing.T) {
	f := setupEmitterFixture(t)
	ctx := context.Background()
	require.NoError(t, f.relayClient.Open(ctx, "s1"))

	emitter := f.newEmitter(t)
	_, err := emitter.Complete(ctx, "s1", "jane.doe@example.com", "wrong-password")
	require.ErrorIs(t, err, autherrors.ErrAuthRejected)

	payload, readErr := f.relayClient.Read(ctx, "s1")
	require.NoError(t, readErr)
	require.NotNil(t, payload)
	require.Equal(t, message.TypeAuthError, payload.Type)
	require.Equal(t, "invalid credentials", payload.Error)
}

func TestCompleteDefaultsRoleToViewer(t *testing.T) {
	f := setupEmitterFixture(t)
	ctx := context.Background()
	require.NoError(t, f.relayClient.Open(ctx, "s1"))

	emitter := f.newEmitter(t) // no profile record, opaque access token
	b, err := emitter.Complete(ctx, "s1", "jane.doe@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, string(identity.RoleViewer), b.Role)
}
