package bundle

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// FragmentPrefix is the well-known URL fragment key used to hand a bundle to
// the next navigation when every persistent storage tier is blocked.
const FragmentPrefix = "#auth="

// EncodeFragment renders a bundle as a one-shot URL fragment
// ("#auth=<base64url of JSON>"). The receiving page must decode it exactly
// once and scrub it from the visible address immediately.
func EncodeFragment(b *TokenBundle) (string, error) {
	if err := b.Validate(); err != nil {
		return "", errors.Wrap(err, "[EncodeFragment]")
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", errors.Wrap(err, "[EncodeFragment] json.Marshal")
	}
	return FragmentPrefix + base64.URLEncoding.EncodeToString(raw), nil
}

// DecodeFragment parses a URL fragment produced by EncodeFragment. A fragment
// without the "#auth=" key returns (nil, nil): it is simply not ours.
func DecodeFragment(fragment string) (*TokenBundle, error) {
	if !strings.HasPrefix(fragment, FragmentPrefix) {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(fragment, FragmentPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "[DecodeFragment] base64 decode")
	}
	var b TokenBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(err, "[DecodeFragment] json.Unmarshal")
	}
	if err := b.Validate(); err != nil {
		return nil, errors.Wrap(err, "[DecodeFragment]")
	}
	return &b, nil
}
