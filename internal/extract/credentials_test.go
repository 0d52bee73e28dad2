package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCredentialOrder(t *testing.T) {
	cred, ok := ResolveCredential(
		StaticCredential(""),
		StaticCredential("from-settings"),
		StaticCredential("build-default"),
	)

	require.True(t, ok)
	assert.Equal(t, "from-settings", cred)
}

func TestResolveCredentialExplicitWins(t *testing.T) {
	cred, ok := ResolveCredential(
		StaticCredential("explicit"),
		StaticCredential("persisted"),
	)

	require.True(t, ok)
	assert.Equal(t, "explicit", cred)
}

func TestResolveCredentialNoneConfigured(t *testing.T) {
	_, ok := ResolveCredential(StaticCredential(""), nil, SettingsFile{})
	assert.False(t, ok)
}

func TestSettingsFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: persisted-key\n"), 0o600))

	cred, ok := SettingsFile{Path: path}.Credential()
	require.True(t, ok)
	assert.Equal(t, "persisted-key", cred)
}

func TestSettingsFileMissing(t *testing.T) {
	_, ok := SettingsFile{Path: filepath.Join(t.TempDir(), "nope.yaml")}.Credential()
	assert.False(t, ok)
}

func TestMaskCredentialLong(t *testing.T) {
	cred := "sk-abcdef1234567890wxyz"
	masked, ok := MaskCredential(cred)

	require.True(t, ok)
	assert.Equal(t, "sk-abcde…wxyz", masked)
	assert.NotContains(t, masked, cred)
}

func TestMaskCredentialNeverLeaksFullValue(t *testing.T) {
	for _, cred := range []string{
		"AIzaSyD-1234567890abcdef",
		"1234567890123", // 13 chars, just past the threshold
		strings.Repeat("x", 64),
	} {
		masked, ok := MaskCredential(cred)
		require.True(t, ok)
		assert.NotContains(t, masked, cred)
	}
}

func TestMaskCredentialShortFullyMasked(t *testing.T) {
	masked, ok := MaskCredential("short-key")

	require.True(t, ok)
	assert.Equal(t, "*********", masked)
}

func TestMaskCredentialUnconfigured(t *testing.T) {
	_, ok := MaskCredential("")
	assert.False(t, ok)
}
