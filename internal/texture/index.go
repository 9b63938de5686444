package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchDirs are the subdirectories of the texture root that hold game textures.
var SearchDirs = []string{"lightmap", "props", "costumes", "accessories", "hair", "makeup", "people", "backdrops"}

// Decodable lists the extensions LoadTexture understands, in order of preference
// when several files share a stem.
var Decodable = []string{".tga", ".png", ".bmp", ".jpg", ".jpeg", ".webp"}

// Index maps lowercase texture stems to filesystem paths.
// Files next to the mesh shadow the texture root, and the texture root shadows its subdirectories.
type Index struct {
	entries map[string]string // stem.lower() → full path
	exact   map[string]string // base.lower() → full path
}

// DefaultRoot returns the textures directory that sits beside meshDir.
func DefaultRoot(meshDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(meshDir)), "textures")
}

// BuildIndex scans meshDir, textureRoot and the SearchDirs below textureRoot.
// An empty textureRoot falls back to DefaultRoot(meshDir).
func BuildIndex(meshDir, textureRoot string) *Index {
	idx := &Index{entries: make(map[string]string), exact: make(map[string]string)}
	if textureRoot == "" && meshDir != "" {
		textureRoot = DefaultRoot(meshDir)
	}

	var dirs []string
	if meshDir != "" {
		dirs = append(dirs, meshDir)
	}
	if textureRoot != "" {
		dirs = append(dirs, textureRoot)
		for _, sub := range SearchDirs {
			dirs = append(dirs, filepath.Join(textureRoot, sub))
		}
	}

	for _, dir := range dirs {
		found := make(map[string]string)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			rank := extRank(ext)
			if rank < 0 {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if base := strings.ToLower(e.Name()); idx.exact[base] == "" {
				idx.exact[base] = path
			}
			stem := stemOf(e.Name())
			if prev, ok := found[stem]; ok && extRank(strings.ToLower(filepath.Ext(prev))) <= rank {
				continue
			}
			found[stem] = path
		}
		// earlier directories win
		for stem, path := range found {
			if _, ok := idx.entries[stem]; !ok {
				idx.entries[stem] = path
			}
		}
	}
	return idx
}

// ResolvePath returns the filesystem path for an image name, or ("", false).
// An exact file name match wins; otherwise only the stem is compared, so
// "wall.dds" is served by "wall.tga".
func (idx *Index) ResolvePath(texName string) (string, bool) {
	base := filepath.Base(strings.ReplaceAll(texName, "\\", "/"))
	if path, ok := idx.exact[strings.ToLower(base)]; ok {
		return path, true
	}
	path, ok := idx.entries[stemOf(base)]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func stemOf(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

func extRank(ext string) int {
	for i, e := range Decodable {
		if e == ext {
			return i
		}
	}
	return -1
}
