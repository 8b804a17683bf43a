package tokenstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/pkg/errors"
)

const tokenFileName = "session.json"

// FileTier persists the bundle as a JSON file under the data folder. This is
// the fast persistent tier: it survives a process restart but stays local to
// one instance.
type FileTier struct {
	path string
}

var _ Tier = (*FileTier)(nil)

func NewFileTier(dataFolder string) *FileTier {
	return &FileTier{path: filepath.Join(dataFolder, tokenFileName)}
}

func (*FileTier) Name() string { return "file" }

func (*FileTier) Synchronous() bool { return true }

func (t *FileTier) Save(_ context.Context, b *bundle.TokenBundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "[FileTier.Save] json.Marshal")
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileTier.Save] os.MkdirAll")
	}
	if err := os.WriteFile(t.path, raw, 0o600); err != nil {
		return errors.Wrap(err, "[FileTier.Save] os.WriteFile")
	}
	return nil
}

func (t *FileTier) Load(_ context.Context) (*bundle.TokenBundle, error) {
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileTier.Load] os.ReadFile")
	}
	var b bundle.TokenBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(err, "[FileTier.Load] json.Unmarshal")
	}
	return &b, nil
}

func (t *FileTier) Clear(_ context.Context) error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileTier.Clear] os.Remove")
	}
	return nil
}
