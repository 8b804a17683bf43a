package relay_test

import (
	"context"
	"testing"
	"time"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func successPayload(sessionID, accessToken string) message.AuthMessage {
	return message.AuthMessage{
		Type:        message.TypeAuthSuccess,
		AccessToken: accessToken,
		User:        &message.UserClaims{ID: "user-1", Email: "jane.doe@example.com", Role: "analyst"},
		Timestamp:   baseTime.UnixMilli(),
		SessionID:   sessionID,
	}
}

func TestInMemoryRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := relay.NewInMemoryRepo(relay.WithNowTime(func() time.Time { return baseTime }))

	require.NoError(t, repo.Create(ctx, "s1"))

	// Unwritten session reads as absent payload, not an error.
	payload, err := repo.Read(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, payload)

	accepted, err := repo.Write(ctx, "s1", successPayload("s1", "access-123"))
	require.NoError(t, err)
	require.True(t, accepted)

	payload, err = repo.Read(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Equal(t, "access-123", payload.AccessToken)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Read(ctx, "s1")
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
}

func TestInMemoryRepoFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := relay.NewInMemoryRepo(relay.WithNowTime(func() time.Time { return baseTime }))

	require.NoError(t, repo.Create(ctx, "s1"))

	accepted, err := repo.Write(ctx, "s1", successPayload("s1", "first"))
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = repo.Write(ctx, "s1", successPayload("s1", "second"))
	require.NoError(t, err)
	require.False(t, accepted, "duplicate write must be ignored")

	payload, err := repo.Read(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "first", payload.AccessToken)
}

func TestInMemoryRepoWriteToUnknownSession(t *testing.T) {
	ctx := context.Background()
	repo := relay.NewInMemoryRepo()

	_, err := repo.Write(ctx, "never-created", successPayload("never-created", "x"))
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
}

func TestInMemoryRepoExpiry(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	repo := relay.NewInMemoryRepo(
		relay.WithSessionTTL(time.Minute),
		relay.WithNowTime(func() time.Time { return now }),
	)

	require.NoError(t, repo.Create(ctx, "s1"))

	now = now.Add(2 * time.Minute)
	_, err := repo.Read(ctx, "s1")
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)

	_, err = repo.Write(ctx, "s1", successPayload("s1", "x"))
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
}

func TestInMemoryRepoPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	repo := relay.NewInMemoryRepo(
		relay.WithSessionTTL(time.Minute),
		relay.WithNowTime(func() time.Time { return now }),
	)

	require.NoError(t, repo.Create(ctx, "old"))
	now = now.Add(2 * time.Minute)
	require.NoError(t, repo.Create(ctx, "fresh"))

	require.Equal(t, 1, repo.PurgeExpired())

	_, err := repo.Read(ctx, "fresh")
	require.NoError(t, err)
}
