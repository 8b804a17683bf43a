package messenger_test

import (
	"testing"
	"time"

	"github.com/adboardhq/auth-relay/internal/config"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/transport/messenger"
	"github.com/stretchr/testify/require"
)

var testAllowed = config.AllowedOrigins{
	Exact:    map[string]struct{}{"https://app.adboardhq.com": {}},
	Suffixes: []string{".gohighlevel.com"},
}

func successMessage(sessionID string) message.AuthMessage {
	return message.AuthMessage{
		Type:        message.TypeAuthSuccess,
		AccessToken: "access-123",
		User:        &message.UserClaims{ID: "user-1", Email: "jane.doe@example.com", Role: "analyst"},
		Timestamp:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC).UnixMilli(),
		SessionID:   sessionID,
	}
}

func TestAllowedOriginDelivers(t *testing.T) {
	sender := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	var got []message.AuthMessage
	unsubscribe := receiver.OnMessage(nil, func(env messenger.Envelope) {
		got = append(got, env.Data)
	})
	defer unsubscribe()

	require.NoError(t, sender.Send(receiver, successMessage("s1"), "https://app.adboardhq.com"))
	require.Len(t, got, 1)
	require.Equal(t, "s1", got[0].SessionID)
}

func TestForgedOriginNeverReachesHandlers(t *testing.T) {
	attacker := messenger.NewEndpoint("https://evil.example.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	delivered := false
	unsubscribe := receiver.OnMessage(nil, func(messenger.Envelope) {
		delivered = true
	})
	defer unsubscribe()

	require.NoError(t, attacker.Send(receiver, successMessage("forged"), messenger.TargetAny))
	require.False(t, delivered, "forged POPUP_AUTH_SUCCESS must be dropped before handlers")
}

func TestSuffixPatternMatchesSubdomains(t *testing.T) {
	host := messenger.NewEndpoint("https://agency.gohighlevel.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	delivered := false
	unsubscribe := receiver.OnMessage(nil, func(messenger.Envelope) {
		delivered = true
	})
	defer unsubscribe()

	require.NoError(t, host.Send(receiver, successMessage("s1"), messenger.TargetAny))
	require.True(t, delivered)
}

func TestTargetOriginMismatchDropsSend(t *testing.T) {
	sender := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	delivered := false
	unsubscribe := receiver.OnMessage(nil, func(messenger.Envelope) {
		delivered = true
	})
	defer unsubscribe()

	require.NoError(t, sender.Send(receiver, successMessage("s1"), "https://other.example.com"))
	require.False(t, delivered)
}

func TestUnrecognizedTypeIgnored(t *testing.T) {
	sender := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	delivered := false
	unsubscribe := receiver.OnMessage(nil, func(messenger.Envelope) {
		delivered = true
	})
	defer unsubscribe()

	require.NoError(t, sender.Send(receiver, message.AuthMessage{Type: "SOMETHING_ELSE"}, messenger.TargetAny))
	require.False(t, delivered)
}

func TestFromWindowPredicateFilters(t *testing.T) {
	popup := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	other := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	var got []messenger.Envelope
	unsubscribe := receiver.OnMessage(messenger.FromWindow(popup), func(env messenger.Envelope) {
		got = append(got, env)
	})
	defer unsubscribe()

	require.NoError(t, other.Send(receiver, successMessage("s-other"), messenger.TargetAny))
	require.NoError(t, popup.Send(receiver, successMessage("s-popup"), messenger.TargetAny))

	require.Len(t, got, 1)
	require.Equal(t, "s-popup", got[0].Data.SessionID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	sender := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	receiver := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)

	count := 0
	unsubscribe := receiver.OnMessage(nil, func(messenger.Envelope) { count++ })

	require.NoError(t, sender.Send(receiver, successMessage("s1"), messenger.TargetAny))
	unsubscribe()
	require.NoError(t, sender.Send(receiver, successMessage("s2"), messenger.TargetAny))

	require.Equal(t, 1, count)
}

func TestSendWithoutTargetWindowErrors(t *testing.T) {
	sender := messenger.NewEndpoint("https://app.adboardhq.com", testAllowed)
	require.Error(t, sender.Send(nil, successMessage("s1"), messenger.TargetAny))
}
