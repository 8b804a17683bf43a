package tokenstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/adboardhq/auth-relay/tokenstore"
	"github.com/adboardhq/auth-relay/tokenstore/tierfakes"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testBundle() *bundle.TokenBundle {
	return &bundle.TokenBundle{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		UserID:       "user-1",
		Email:        "jane.doe@example.com",
		Role:         "analyst",
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	fake := tierfakes.NewFakeTier("file", true)
	store := tokenstore.New([]tokenstore.Tier{fake}, tokenstore.WithNowTime(fixedNow(baseTime)))

	_, err := store.Save(ctx, testBundle())
	require.NoError(t, err)

	got := store.Get(ctx)
	require.NotNil(t, got)
	require.Equal(t, "access-123", got.AccessToken)
	require.Equal(t, "refresh-456", got.RefreshToken)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, "jane.doe@example.com", got.Email)
	require.Equal(t, "analyst", got.Role)
	require.Equal(t, baseTime.Add(time.Hour), got.ExpiresAt)

	// The slower tier got the same bundle.
	require.NotNil(t, fake.Stored())
	require.Equal(t, got, fake.Stored())
}

func TestSaveReturnsStampedCopy(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(nil, tokenstore.WithNowTime(fixedNow(baseTime)))

	input := testBundle()
	stamped, err := store.Save(ctx, input)
	require.NoError(t, err)
	require.Equal(t, baseTime.Add(time.Hour), stamped.ExpiresAt)

	// The input is never mutated; adopters must switch to the stamped copy.
	require.True(t, input.ExpiresAt.IsZero())
	require.Equal(t, "access-123", stamped.AccessToken)
}

func TestSaveSurvivesAllNonMemoryTierFailures(t *testing.T) {
	ctx := context.Background()
	file := tierfakes.NewFakeTier("file", true)
	file.FailSave = true
	file.FailLoad = true
	keyring := tierfakes.NewFakeTier("keyring", false)
	keyring.FailSave = true
	keyring.FailLoad = true
	store := tokenstore.New([]tokenstore.Tier{file, keyring}, tokenstore.WithNowTime(fixedNow(baseTime)))

	_, err := store.Save(ctx, testBundle())
	require.NoError(t, err)

	got := store.Get(ctx)
	require.NotNil(t, got)
	require.Equal(t, "access-123", got.AccessToken)
}

func TestGetAfterSimulatedReloadReturnsNil(t *testing.T) {
	ctx := context.Background()
	file := tierfakes.NewFakeTier("file", true)
	file.FailSave = true
	file.FailLoad = true

	store := tokenstore.New([]tokenstore.Tier{file}, tokenstore.WithNowTime(fixedNow(baseTime)))
	_, err := store.Save(ctx, testBundle())
	require.NoError(t, err)
	require.NotNil(t, store.Get(ctx))

	// A reload means a fresh memory tier over the same (still failing)
	// persistent tier.
	reloaded := tokenstore.New([]tokenstore.Tier{file}, tokenstore.WithNowTime(fixedNow(baseTime)))
	require.Nil(t, reloaded.Get(ctx))
}

func TestExpiredBundleIsDroppedAndDeleted(t *testing.T) {
	ctx := context.Background()
	fake := tierfakes.NewFakeTier("file", true)
	fake.Seed(testBundle().WithExpiry(baseTime.Add(-time.Minute)))
	store := tokenstore.New([]tokenstore.Tier{fake}, tokenstore.WithNowTime(fixedNow(baseTime)))

	require.Nil(t, store.Get(ctx))
	require.Nil(t, fake.Stored(), "expired bundle must be deleted from the tier where it was found")
}

func TestReadRepairMirrorsIntoMemory(t *testing.T) {
	ctx := context.Background()
	fake := tierfakes.NewFakeTier("keyring", false)
	fake.Seed(testBundle().WithExpiry(baseTime.Add(time.Hour)))
	store := tokenstore.New([]tokenstore.Tier{fake}, tokenstore.WithNowTime(fixedNow(baseTime)))

	require.NotNil(t, store.Get(ctx))
	loadsAfterFirstGet := fake.LoadCalls

	// Second read is served from memory without touching the slow tier.
	require.NotNil(t, store.Get(ctx))
	require.Equal(t, loadsAfterFirstGet, fake.LoadCalls)
}

func TestGetFastSkipsSlowTiers(t *testing.T) {
	ctx := context.Background()
	slow := tierfakes.NewFakeTier("keyring", false)
	slow.Seed(testBundle().WithExpiry(baseTime.Add(time.Hour)))
	store := tokenstore.New([]tokenstore.Tier{slow}, tokenstore.WithNowTime(fixedNow(baseTime)))

	require.Nil(t, store.GetFast(ctx))
	require.Zero(t, slow.LoadCalls)

	// The full read path still finds it.
	require.NotNil(t, store.Get(ctx))
}

func TestClearWipesEveryTier(t *testing.T) {
	ctx := context.Background()
	file := tierfakes.NewFakeTier("file", true)
	keyring := tierfakes.NewFakeTier("keyring", false)
	store := tokenstore.New([]tokenstore.Tier{file, keyring}, tokenstore.WithNowTime(fixedNow(baseTime)))

	_, err := store.Save(ctx, testBundle())
	require.NoError(t, err)
	store.Clear(ctx)

	require.Nil(t, store.Get(ctx))
	require.Nil(t, file.Stored())
	require.Nil(t, keyring.Stored())
}

func TestClearIsSafeWithNoSession(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(nil, tokenstore.WithNowTime(fixedNow(baseTime)))
	store.Clear(ctx)
	require.Nil(t, store.Get(ctx))
}

func TestFragmentTierDecodesOnceAndResaves(t *testing.T) {
	ctx := context.Background()
	encoded, err := bundle.EncodeFragment(testBundle().WithExpiry(baseTime.Add(time.Hour)))
	require.NoError(t, err)

	fragment := tokenstore.NewFragment(encoded)
	file := tierfakes.NewFakeTier("file", true)
	store := tokenstore.New(
		[]tokenstore.Tier{file, tokenstore.NewFragmentTier(fragment)},
		tokenstore.WithNowTime(fixedNow(baseTime)),
	)

	got := store.Get(ctx)
	require.NotNil(t, got)
	require.Equal(t, "access-123", got.AccessToken)

	// Decode-once: the fragment is scrubbed and the bundle was re-saved
	// through the normal tier order.
	require.False(t, fragment.Peek())
	require.NotNil(t, file.Stored())
}

func TestFileTierRoundTrip(t *testing.T) {
	ctx := context.Background()
	tier := tokenstore.NewFileTier(t.TempDir())

	b := testBundle().WithExpiry(baseTime.Add(time.Hour))
	require.NoError(t, tier.Save(ctx, b))

	got, err := tier.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, b, got)

	require.NoError(t, tier.Clear(ctx))
	got, err = tier.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	// Clearing an already empty tier is a no-op.
	require.NoError(t, tier.Clear(ctx))
}
