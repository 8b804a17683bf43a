package config

import (
	"time"
)

type RelayConfig interface {
	GetRelaySessionTTL() time.Duration
	GetPollInterval() time.Duration
	GetAuthTimeout() time.Duration
	GetCloseGracePeriod() time.Duration
	GetTokenTTL() time.Duration
	GetRedisAddr() string
}

type Relay struct{}

var _ RelayConfig = Relay{}

// GetRelaySessionTTL is the server-side lifetime of a relay session,
// independent of client polling activity.
func (Relay) GetRelaySessionTTL() time.Duration {
	return durationEnv("RELAY_SESSION_TTL", 5*time.Minute)
}

// GetPollInterval is the initiator's fixed relay polling cadence.
func (Relay) GetPollInterval() time.Duration {
	return durationEnv("RELAY_POLL_INTERVAL", 500*time.Millisecond)
}

// GetAuthTimeout is the hard wall-clock bound on a popup auth attempt.
func (Relay) GetAuthTimeout() time.Duration {
	return durationEnv("AUTH_TIMEOUT", 5*time.Minute)
}

// GetCloseGracePeriod is how long the initiator waits after a popup closes
// before the final relay recheck, to tolerate an in-flight write.
func (Relay) GetCloseGracePeriod() time.Duration {
	return durationEnv("POPUP_CLOSE_GRACE", 2*time.Second)
}

// GetTokenTTL is the fixed client-side bundle lifetime stamped by the tiered
// store. Decoupled from the identity provider's real token lifetime.
func (Relay) GetTokenTTL() time.Duration {
	return durationEnv("AUTH_TOKEN_TTL", time.Hour)
}

// GetRedisAddr selects the Redis relay repo when non-empty.
func (Relay) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
