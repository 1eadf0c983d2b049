package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is the optional manifest read by `stevedore create` from
// the application source directory. It ships inside the archive like any
// other file.
const ManifestFilename = "deploy.yaml"

// Manifest names the application and the version being packaged.
type Manifest struct {
	// Name is the application name; it becomes the namespace directory on targets.
	Name string `yaml:"name"`
	// Version is the version string for this package.
	Version string `yaml:"version"`
}

// ErrNoManifest is returned when the source directory carries no deploy.yaml.
var ErrNoManifest = errors.New("no " + ManifestFilename + " in source directory")

// LoadManifest reads deploy.yaml from the application source directory.
func LoadManifest(sourceDir string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(filepath.Join(sourceDir, ManifestFilename)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoManifest
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}
