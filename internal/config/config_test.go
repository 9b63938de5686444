package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mesh_dir": "m", "max_texture_size": 512, "webp_textures": true}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "m", cfg.MeshDir)
	assert.Equal(t, 512, cfg.MaxTextureSize)
	assert.True(t, cfg.WebPTextures)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "config: read")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "out")

	tests := []struct {
		name  string
		cfg   Config
		flags Flags
		want  Config
	}{
		{
			name:  "defaults under base",
			flags: Flags{DataDir: base},
			want: Config{
				BaseDir:    base,
				MeshDir:    filepath.Join(base, "data", "meshes"),
				TextureDir: filepath.Join(base, "data", "textures"),
				OutputDir:  filepath.Join(base, "msh-export"),
			},
		},
		{
			name:  "relative and absolute",
			cfg:   Config{BaseDir: base, MeshDir: "props", OutputDir: abs, Workers: 3},
			flags: Flags{TextureDir: "tex"},
			want: Config{
				BaseDir:    base,
				MeshDir:    filepath.Join(base, "props"),
				TextureDir: filepath.Join(base, "tex"),
				OutputDir:  abs,
				Workers:    3,
			},
		},
		{
			name:  "mesh dir only",
			flags: Flags{MeshDir: filepath.Join(base, "meshes"), Workers: 2},
			want: Config{
				MeshDir:   filepath.Join(base, "meshes"),
				OutputDir: filepath.Join(base, "msh-export"),
				Workers:   2,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Resolve(tt.flags)
			if tt.want.Workers == 0 {
				tt.want.Workers = runtime.NumCPU()
			}
			tt.want.Charmap = DefaultCharmap
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestEncoding(t *testing.T) {
	for _, name := range []string{"", "Windows 1252", "windows-1252"} {
		cm, err := (&Config{Charmap: name}).Encoding()
		require.NoError(t, err, name)
		assert.Same(t, charmap.Windows1252, cm)
	}

	cm, err := (&Config{Charmap: "windows-1251"}).Encoding()
	require.NoError(t, err)
	assert.Same(t, charmap.Windows1251, cm)

	_, err = (&Config{Charmap: "klingon"}).Encoding()
	assert.ErrorContains(t, err, "unknown charmap")
}
