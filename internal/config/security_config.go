package config

import "strings"

type SecurityConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetBroadcastChannelName() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// AllowedOrigins holds exact origins plus suffix patterns (entries starting
// with ".") for known host-platform domains.
type AllowedOrigins struct {
	Exact    map[string]struct{}
	Suffixes []string
}

type nullValue = struct{}

// IsAllowedOrigin reports whether an exact origin or a suffix pattern
// matches. Suffix patterns match any subdomain of the listed domain.
func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	if _, ok := a.Exact[origin]; ok {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	for _, suffix := range a.Suffixes {
		if strings.HasSuffix(host, suffix) || host == strings.TrimPrefix(suffix, ".") {
			return true
		}
	}
	return false
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a.Exact)+len(a.Suffixes))
	for k := range a.Exact {
		origins = append(origins, k)
	}
	origins = append(origins, a.Suffixes...)
	return strings.Join(origins, ", ")
}

var allowedOrigins = AllowedOrigins{
	Exact: map[string]struct{}{
		"https://app.adboardhq.com": nullValue{},
		"http://localhost:3000":     nullValue{},
	},
	// Host platforms that embed the dashboard as an iframe.
	Suffixes: []string{".adboardhq.com", ".gohighlevel.com", ".msgsndr.com", ".leadconnectorhq.com"},
}

func (Security) GetAllowedOrigins() AllowedOrigins {
	return allowedOrigins
}

// GetBroadcastChannelName is the single well-known channel shared by every
// cooperating page of the application.
func (Security) GetBroadcastChannelName() string {
	return GetEnv("BROADCAST_CHANNEL", "adboard-auth")
}
