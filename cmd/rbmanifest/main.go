// Command rbmanifest assembles a bundle manifest from an author-friendly
// YAML source document into the canonical JSON manifest.json a host
// loader reads.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jrobhoward/rustbridge/manifest"
)

func main() {
	in := flag.String("in", "manifest.yaml", "path to the source manifest document")
	out := flag.String("out", "manifest.json", "path to write the canonical manifest")
	flag.Parse()

	if err := run(*in, *out); err != nil {
		fmt.Fprintln(os.Stderr, "rbmanifest:", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}

	var m manifest.Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parsing %s: %w", inPath, err)
	}
	if m.ManifestVersion == 0 {
		m.ManifestVersion = 1
	}

	if verr := m.Validate(); verr != nil {
		return fmt.Errorf("invalid manifest: %s", verr.Error())
	}

	encoded, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(encoded))
	return nil
}
