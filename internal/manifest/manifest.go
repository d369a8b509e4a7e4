package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"otapush/internal/config"
	"otapush/internal/hash"
)

// Manifest maps a normalized, slash-separated relative path to the lowercase
// hex digest of that entry's content. Directory entries keep a trailing "/".
// A manifest is built once per release and never mutated afterwards.
type Manifest map[string]string

// PackageHash reduces the manifest to a single digest identifying the
// release's content. The signing-metadata entry is excluded so that signing
// or re-signing a release never changes its identity. Entries are rendered
// as "path:digest", sorted, and hashed as one JSON array: map iteration
// order differs across builders and platforms, and any independent client
// implementation must be able to reproduce this value.
func (m Manifest) PackageHash() string {
	entries := make([]string, 0, len(m))
	for path, digest := range m {
		if isSigningMetadata(path) {
			continue
		}
		entries = append(entries, path+":"+digest)
	}
	sort.Strings(entries)
	return hash.Bytes(encodeJSON(entries))
}

// Serialize renders the manifest as a flat JSON object of strings, the form
// it is persisted in as a blob next to the release archive.
func (m Manifest) Serialize() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("serialize nil manifest")
	}
	return encodeJSON(map[string]string(m)), nil
}

// Deserialize parses a persisted manifest blob. Callers planning diffs treat
// any error as "manifest unavailable" and skip the release rather than fail.
func Deserialize(data []byte) (Manifest, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return Manifest(m), nil
}

// Paths returns the manifest's paths in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func isSigningMetadata(path string) bool {
	return path == config.SigningMetadataFile ||
		strings.HasSuffix(path, "/"+config.SigningMetadataFile)
}

// encodeJSON marshals without HTML escaping; clients reimplement the package
// hash from plain JSON and must see byte-identical input.
func encodeJSON(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		// Only reachable for unmarshalable types; entries are strings.
		panic(err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
