package extract

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CredentialSource yields a credential, reporting whether one is present.
// The cloud backend consults an ordered list of sources; the first source
// with a credential wins. The ordering is a stable contract: an explicit
// call-time value beats a locally persisted setting, which beats the
// build-time default.
type CredentialSource interface {
	Credential() (string, bool)
}

// StaticCredential is a fixed credential value; empty means absent.
type StaticCredential string

func (s StaticCredential) Credential() (string, bool) {
	return string(s), s != ""
}

// SettingsFile reads the persisted credential from a small YAML settings
// file. A missing or unreadable file simply yields no credential.
type SettingsFile struct {
	Path string
}

func (s SettingsFile) Credential() (string, bool) {
	if s.Path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", false
	}
	var settings struct {
		APIKey string `yaml:"api_key"`
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return "", false
	}
	key := strings.TrimSpace(settings.APIKey)
	return key, key != ""
}

// DefaultCredential is the build-time default, injected via
// -ldflags "-X .../internal/extract.DefaultCredential=...". Empty in normal
// builds.
var DefaultCredential string

// BuildDefault exposes the build-time default as the lowest-precedence
// source.
func BuildDefault() CredentialSource {
	return buildDefaultSource{}
}

type buildDefaultSource struct{}

func (buildDefaultSource) Credential() (string, bool) {
	return DefaultCredential, DefaultCredential != ""
}

// ResolveCredential walks sources in order and returns the first credential
// present.
func ResolveCredential(sources ...CredentialSource) (string, bool) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if cred, ok := src.Credential(); ok {
			return cred, true
		}
	}
	return "", false
}

// MaskCredential renders a credential for display only: the first 8 and last
// 4 characters joined by an ellipsis. Credentials of 12 characters or fewer
// are fully masked so the value is never echoed. Reports false when the
// credential is empty.
func MaskCredential(credential string) (string, bool) {
	if credential == "" {
		return "", false
	}
	if len(credential) <= 12 {
		return strings.Repeat("*", len(credential)), true
	}
	return credential[:8] + "…" + credential[len(credential)-4:], true
}
