package bundle_test

import (
	"testing"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/stretchr/testify/require"
)

func TestFragmentRoundTrip(t *testing.T) {
	b := &bundle.TokenBundle{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		UserID:       "user-1",
		Email:        "jane.doe@example.com",
		Role:         "analyst",
		ExpiresAt:    time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
	}

	encoded, err := bundle.EncodeFragment(b)
	require.NoError(t, err)
	require.Contains(t, encoded, bundle.FragmentPrefix)

	decoded, err := bundle.DecodeFragment(encoded)
	require.NoError(t, err)
	require.Equal(t, b, decoded)
}

func TestDecodeFragmentIgnoresForeignFragments(t *testing.T) {
	decoded, err := bundle.DecodeFragment("#section-2")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestDecodeFragmentRejectsGarbage(t *testing.T) {
	_, err := bundle.DecodeFragment(bundle.FragmentPrefix + "not-base64!!!")
	require.Error(t, err)
}

func TestLiveAt(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	b := &bundle.TokenBundle{AccessToken: "a", UserID: "u", ExpiresAt: now.Add(time.Minute)}
	require.True(t, b.LiveAt(now))
	require.False(t, b.LiveAt(now.Add(2*time.Minute)))

	var nilBundle *bundle.TokenBundle
	require.False(t, nilBundle.LiveAt(now))
}
