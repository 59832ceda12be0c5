package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() *Manifest {
	return &Manifest{
		ManifestVersion: 1,
		Name:            "sample-plugin",
		Version:         "1.0.0",
		Platforms: map[string]Platform{
			"linux-x86_64": {Variants: map[string]Variant{
				"release": {Path: "lib/linux-x86_64/release/libsample.so", SHA256: "deadbeef"},
				"debug":   {Path: "lib/linux-x86_64/debug/libsample.so", SHA256: "cafebabe"},
			}},
		},
		DefaultVariant: "release",
		API: API{
			Transports: []string{"json"},
		},
	}
}

func TestValidateAcceptsWellFormedManifest(t *testing.T) {
	assert.Nil(t, validManifest().Validate())
}

func TestValidateRejectsMissingName(t *testing.T) {
	m := validManifest()
	m.Name = ""
	require.NotNil(t, m.Validate())
}

func TestValidateRejectsNoPlatforms(t *testing.T) {
	m := validManifest()
	m.Platforms = nil
	require.NotNil(t, m.Validate())
}

func TestValidateRejectsDanglingDefaultVariant(t *testing.T) {
	m := validManifest()
	m.DefaultVariant = "does-not-exist"
	require.NotNil(t, m.Validate())
}

func TestValidateRejectsNoTransports(t *testing.T) {
	m := validManifest()
	m.API.Transports = nil
	require.NotNil(t, m.Validate())
}

func TestValidateToleratesAbsentOptionalFields(t *testing.T) {
	m := validManifest()
	m.Description = ""
	m.Authors = nil
	m.PublicKey = ""
	m.Build = nil
	m.SBOMRef = ""
	assert.Nil(t, m.Validate())
}

func TestResolveVariantExplicitName(t *testing.T) {
	m := validManifest()
	v, ok := m.ResolveVariant("linux-x86_64", "debug")
	require.True(t, ok)
	assert.Equal(t, "lib/linux-x86_64/debug/libsample.so", v.Path)
}

func TestResolveVariantFallsBackToDefault(t *testing.T) {
	m := validManifest()
	v, ok := m.ResolveVariant("linux-x86_64", "")
	require.True(t, ok)
	assert.Equal(t, "lib/linux-x86_64/release/libsample.so", v.Path)
}

func TestResolveVariantUnknownTriple(t *testing.T) {
	m := validManifest()
	_, ok := m.ResolveVariant("darwin-arm64", "release")
	assert.False(t, ok)
}

func TestResolveVariantNoNameNoDefault(t *testing.T) {
	m := validManifest()
	m.DefaultVariant = ""
	_, ok := m.ResolveVariant("linux-x86_64", "")
	assert.False(t, ok)
}

func TestManifestJSONRoundTrip(t *testing.T) {
	m := validManifest()
	m.Build = &BuildMetadata{CommitSHA: "abc123", Dirty: true}

	encoded, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, *m, decoded)
}

func TestVerifyChecksumMatch(t *testing.T) {
	artifact := []byte("fake shared library bytes")
	sum := sha256.Sum256(artifact)
	v := Variant{Path: "lib.so", SHA256: hex.EncodeToString(sum[:])}

	assert.Nil(t, VerifyChecksum(v, artifact))
}

func TestVerifyChecksumMismatch(t *testing.T) {
	v := Variant{Path: "lib.so", SHA256: "0000"}
	err := VerifyChecksum(v, []byte("other bytes"))
	require.NotNil(t, err)
}

func TestVerifyChecksumIsCaseInsensitive(t *testing.T) {
	artifact := []byte("fake shared library bytes")
	sum := sha256.Sum256(artifact)
	v := Variant{Path: "lib.so", SHA256: hex.EncodeToString(sum[:])}
	v.SHA256 = upper(v.SHA256)

	assert.Nil(t, VerifyChecksum(v, artifact))
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
