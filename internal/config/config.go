package config

import (
	"fmt"
	"os"
	"runtime"

	yaml "gopkg.in/yaml.v2"
)

const (
	// SigningMetadataFile is hashed into every manifest like a regular file,
	// but excluded when the package hash is computed. Attaching or rotating
	// a release signature must never change a release's content identity.
	SigningMetadataFile = ".codepushrelease"

	// DiffManifestEntry is the synthetic change-manifest entry added to
	// every diff archive. Clients parse it to apply deletions and verify
	// the reconstructed package. Wire-format contract.
	DiffManifestEntry = "hotcodepush.json"

	ConfigFile = "otapush.yml"

	DefaultMaxPackagesToDiff = 5
	DefaultBlobDir           = ".otapush/blobs"
)

// Platform trash that never belongs in a package manifest.
var (
	TrashDirPrefixes = []string{"__MACOSX/"}
	TrashFileNames   = []string{".DS_Store", "Thumbs.db"}
)

// Config holds the tunable knobs for diff planning and local blob storage.
type Config struct {
	MaxPackagesToDiff int    `yaml:"max_packages_to_diff"`
	Workers           int    `yaml:"workers"`
	BlobDir           string `yaml:"blob_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxPackagesToDiff: DefaultMaxPackagesToDiff,
		Workers:           runtime.NumCPU(),
		BlobDir:           DefaultBlobDir,
	}
}

// Load reads a yaml config file, falling back to Default when the file
// does not exist. Zero-valued fields are filled from defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %q: %w", path, err)
	}

	if cfg.MaxPackagesToDiff <= 0 {
		cfg.MaxPackagesToDiff = DefaultMaxPackagesToDiff
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BlobDir == "" {
		cfg.BlobDir = DefaultBlobDir
	}
	return cfg, nil
}
