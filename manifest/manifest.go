// Package manifest parses and verifies the bundle manifest a host reads
// before it ever loads a plugin's shared library: which platform/variant
// combination to load, its checksum, and which message types the loaded
// plugin claims to support. This package is read-only with respect to the
// shared library itself; it never loads or dlopens anything.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jrobhoward/rustbridge/rberr"
)

// Variant is one buildable artifact within a platform record: the
// in-bundle path (lib/<triple>/<variant>/<filename>) and its SHA-256.
type Variant struct {
	Path   string `json:"path" yaml:"path"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Platform is one target triple's record: its named variants ("release",
// "debug", ...).
type Platform struct {
	Variants map[string]Variant `json:"variants" yaml:"variants"`
}

// MessageType describes one JSON or binary message type a plugin's API
// block declares support for.
type MessageType struct {
	Tag       string  `json:"tag" yaml:"tag"`
	ID        *uint32 `json:"id,omitempty" yaml:"id,omitempty"`
	SchemaRef string  `json:"schema_ref,omitempty" yaml:"schema_ref,omitempty"`
}

// API describes the transports and message types a bundle's plugin
// supports, the way a manifest's consumer decides whether it can talk to
// the plugin at all before loading it.
type API struct {
	Transports   []string      `json:"transports" yaml:"transports"`
	MessageTypes []MessageType `json:"message_types,omitempty" yaml:"message_types,omitempty"`
}

// BuildMetadata is optional provenance recorded at build time.
type BuildMetadata struct {
	CommitSHA string `json:"commit_sha,omitempty" yaml:"commit_sha,omitempty"`
	Branch    string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Dirty     bool   `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	BuildHost string `json:"build_host,omitempty" yaml:"build_host,omitempty"`
	Toolchain string `json:"toolchain,omitempty" yaml:"toolchain,omitempty"`
}

// Manifest is the full bundle descriptor: identity, licensing, one
// platform record per supported target triple, the declared API surface,
// and optional signing/provenance metadata. It lives at manifest.json in
// the bundle archive.
type Manifest struct {
	ManifestVersion int      `json:"manifest_version" yaml:"manifest_version"`
	Name            string   `json:"name" yaml:"name"`
	Version         string   `json:"version" yaml:"version"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Authors         []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	License         string   `json:"license,omitempty" yaml:"license,omitempty"`
	Repository      string   `json:"repository,omitempty" yaml:"repository,omitempty"`

	// Platforms maps a target triple (e.g. "linux-x86_64") to its record
	// of named variants. DefaultVariant names the variant a loader picks
	// when the host does not ask for one explicitly.
	Platforms      map[string]Platform `json:"platforms" yaml:"platforms"`
	DefaultVariant string              `json:"default_variant,omitempty" yaml:"default_variant,omitempty"`

	API API `json:"api" yaml:"api"`

	PublicKey string         `json:"public_key,omitempty" yaml:"public_key,omitempty"`
	Build     *BuildMetadata `json:"build,omitempty" yaml:"build,omitempty"`
	SBOMRef   string         `json:"sbom_ref,omitempty" yaml:"sbom_ref,omitempty"`
}

// Validate checks the manifest's required fields and internal
// consistency (a default_variant must exist in every platform record).
func (m *Manifest) Validate() *rberr.Error {
	if m.Name == "" {
		return rberr.New(rberr.CodeConfigError, "manifest missing name")
	}
	if m.Version == "" {
		return rberr.New(rberr.CodeConfigError, "manifest missing version")
	}
	if len(m.Platforms) == 0 {
		return rberr.New(rberr.CodeConfigError, "manifest declares no platforms")
	}
	for triple, p := range m.Platforms {
		if len(p.Variants) == 0 {
			return rberr.Newf(rberr.CodeConfigError, "platform %q declares no variants", triple)
		}
		for name, v := range p.Variants {
			if v.Path == "" {
				return rberr.Newf(rberr.CodeConfigError, "variant %s/%s missing path", triple, name)
			}
			if v.SHA256 == "" {
				return rberr.Newf(rberr.CodeConfigError, "variant %s/%s missing sha256", triple, name)
			}
		}
		if m.DefaultVariant != "" {
			if _, ok := p.Variants[m.DefaultVariant]; !ok {
				return rberr.Newf(rberr.CodeConfigError, "default_variant %q is not declared for platform %q", m.DefaultVariant, triple)
			}
		}
	}
	if len(m.API.Transports) == 0 {
		return rberr.New(rberr.CodeConfigError, "manifest api block declares no transports")
	}
	return nil
}

// ResolveVariant picks the artifact for the given triple and variant
// name. An empty variant name resolves through DefaultVariant.
func (m *Manifest) ResolveVariant(triple, variant string) (Variant, bool) {
	p, ok := m.Platforms[triple]
	if !ok {
		return Variant{}, false
	}
	if variant == "" {
		variant = m.DefaultVariant
	}
	if variant == "" {
		return Variant{}, false
	}
	v, ok := p.Variants[variant]
	return v, ok
}

// VerifyChecksum hashes artifact with SHA-256 and compares it against
// variant's declared checksum, case-insensitively.
func VerifyChecksum(variant Variant, artifact []byte) *rberr.Error {
	sum := sha256.Sum256(artifact)
	got := hex.EncodeToString(sum[:])
	want := variant.SHA256
	if !equalFoldHex(got, want) {
		return rberr.Newf(rberr.CodeConfigError, "checksum mismatch for %s: expected %s, got %s", variant.Path, want, got)
	}
	return nil
}

func equalFoldHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
