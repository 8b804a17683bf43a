package tokenstore

import (
	"context"
	"encoding/json"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const keyringUser = "session"

// KeyringTier stores the bundle in the OS keyring. This is the durable slow
// tier: it survives restarts and is shared across instances on the same
// machine, but the keyring daemon may be absent or locked, so every call can
// fail and the store treats that as a normal degraded state.
type KeyringTier struct {
	service string
}

var _ Tier = (*KeyringTier)(nil)

func NewKeyringTier(service string) *KeyringTier {
	return &KeyringTier{service: service}
}

func (*KeyringTier) Name() string { return "keyring" }

func (*KeyringTier) Synchronous() bool { return false }

func (t *KeyringTier) Save(_ context.Context, b *bundle.TokenBundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "[KeyringTier.Save] json.Marshal")
	}
	if err := keyring.Set(t.service, keyringUser, string(raw)); err != nil {
		return errors.Wrap(err, "[KeyringTier.Save] keyring.Set")
	}
	return nil
}

func (t *KeyringTier) Load(_ context.Context) (*bundle.TokenBundle, error) {
	raw, err := keyring.Get(t.service, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[KeyringTier.Load] keyring.Get")
	}
	var b bundle.TokenBundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, errors.Wrap(err, "[KeyringTier.Load] json.Unmarshal")
	}
	return &b, nil
}

func (t *KeyringTier) Clear(_ context.Context) error {
	err := keyring.Delete(t.service, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "[KeyringTier.Clear] keyring.Delete")
	}
	return nil
}
