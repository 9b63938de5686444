package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// DefaultCharmap names the code page used for names stored in .msh files.
const DefaultCharmap = "Windows 1252"

// Config holds all configurable paths and conversion settings.
type Config struct {
	// Paths
	BaseDir    string `json:"base_dir"`
	MeshDir    string `json:"mesh_dir"`
	TextureDir string `json:"texture_dir"`
	OutputDir  string `json:"output_dir"`

	// Conversion settings
	Charmap        string `json:"charmap"`
	MaxTextureSize int    `json:"max_texture_size"`
	WebPTextures   bool   `json:"webp_textures"`
	ControlMeshes  bool   `json:"control_meshes"`
	Workers        int    `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	DataDir    string
	MeshDir    string
	TextureDir string
	OutputDir  string
	Workers    int
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.DataDir != "" {
		c.BaseDir = flags.DataDir
	}
	if flags.MeshDir != "" {
		c.MeshDir = flags.MeshDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.BaseDir == "" && c.MeshDir == "" {
		c.BaseDir = detectBaseDir()
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		c.MeshDir = resolvePath(c.BaseDir, c.MeshDir, filepath.Join("data", "meshes"))
		c.TextureDir = resolvePath(c.BaseDir, c.TextureDir, filepath.Join("data", "textures"))
		c.OutputDir = resolvePath(c.BaseDir, c.OutputDir, "msh-export")
	} else if c.MeshDir != "" && c.OutputDir == "" {
		c.OutputDir = filepath.Join(filepath.Dir(filepath.Clean(c.MeshDir)), "msh-export")
	}

	if c.Charmap == "" {
		c.Charmap = DefaultCharmap
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

func resolvePath(base, p, def string) string {
	switch {
	case p == "":
		return filepath.Join(base, def)
	case filepath.IsAbs(p):
		return p
	default:
		return filepath.Join(base, p)
	}
}

// Encoding returns the charmap named by c.Charmap. Names are matched case-insensitively
// ignoring spaces and dashes, so "windows-1252" and "Windows 1252" are the same.
func (c *Config) Encoding() (*charmap.Charmap, error) {
	want := normalizeCharmap(c.Charmap)
	if want == "" {
		want = normalizeCharmap(DefaultCharmap)
	}
	for _, enc := range charmap.All {
		cm, ok := enc.(*charmap.Charmap)
		if ok && normalizeCharmap(cm.String()) == want {
			return cm, nil
		}
	}
	return nil, errors.Errorf("config: unknown charmap %q", c.Charmap)
}

func normalizeCharmap(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
}

func detectBaseDir() string {
	// Try relative to executable
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir), filepath.Join(dir, "..", "..")} {
			if hasMeshes(base) {
				return base
			}
		}
	}

	cwd, _ := os.Getwd()
	for _, base := range []string{cwd, filepath.Dir(cwd)} {
		if hasMeshes(base) {
			return base
		}
	}
	return ""
}

func hasMeshes(base string) bool {
	info, err := os.Stat(filepath.Join(base, "data", "meshes"))
	return err == nil && info.IsDir()
}
