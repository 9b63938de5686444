package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ManifestEntry represents one converted file in the output manifest.
type ManifestEntry struct {
	Source   string   `json:"source"`
	Type     string   `json:"type,omitempty"`
	GLB      string   `json:"glb,omitempty"`
	Groups   int      `json:"groups"`
	Meshes   int      `json:"meshes"`
	Bones    int      `json:"bones,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// WriteManifest writes manifest.json to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Source:   r.Path,
			Type:     r.Type,
			Groups:   r.Groups,
			Meshes:   r.Meshes,
			Bones:    r.Bones,
			Warnings: r.Warnings,
			Error:    r.Error,
		}
		if r.Success {
			entries[i].GLB = strings.TrimSuffix(r.Path, filepath.Ext(r.Path)) + ".glb"
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "batch: manifest")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "batch: write %s", path)
}
