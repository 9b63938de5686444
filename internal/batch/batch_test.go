package batch

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movies-msh/internal/msh"
	"movies-msh/internal/scene"
	"movies-msh/internal/texture"
)

func propScene() *scene.Scene {
	return &scene.Scene{
		Images:    []string{"chair.dds", "missing.dds"},
		Materials: []scene.Material{{Name: "wood", Textures: [4]string{"chair.dds"}, Color: scene.Color{R: 255, G: 255, B: 255, A: 255}}},
		Groups: []scene.Group{{
			Name:  "00",
			Pivot: scene.Identity(),
			Meshes: []scene.Mesh{{
				Material:  "wood",
				Positions: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Normals:   [][3]float64{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
				Faces:     []scene.Face{{Verts: []int{0, 1, 2}, UV: [][2]float64{{0, 0}, {1, 0}, {0, 1}}}},
			}},
		}},
	}
}

// layout: <root>/meshes/{p_chair.msh, sub/set_lobby.msh, broken.msh}, <root>/textures/props/chair.png
func meshTree(t *testing.T) string {
	root := t.TempDir()
	meshDir := filepath.Join(root, "meshes")
	require.NoError(t, os.MkdirAll(filepath.Join(meshDir, "sub"), 0755))

	data, _, err := msh.EncodeBytes(propScene(), msh.EncodeOptions{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(meshDir, "p_chair.msh"), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(meshDir, "sub", "set_lobby.MSH"), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(meshDir, "broken.msh"), data[:30], 0644))
	require.NoError(t, os.WriteFile(filepath.Join(meshDir, "readme.txt"), []byte("x"), 0644))

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 9, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures", "props"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "props", "chair.png"), buf.Bytes(), 0644))
	return meshDir
}

func TestScan(t *testing.T) {
	meshDir := meshTree(t)
	items, err := Scan(meshDir)
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Path: "broken.msh"},
		{Path: "p_chair.msh", Type: msh.TypeProp},
		{Path: "sub/set_lobby.MSH", Type: msh.TypeSet},
	}, items)

	_, err = Scan(filepath.Join(meshDir, "nope"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	meshDir := meshTree(t)
	out := t.TempDir()
	items, err := Scan(meshDir)
	require.NoError(t, err)

	results := Run(Config{
		MeshDir:      meshDir,
		OutputDir:    out,
		Textures:     texture.NewCache(texture.BuildIndex(meshDir, ""), 0),
		WebPTextures: true,
		Workers:      2,
	}, items)
	require.Len(t, results, 3)

	broken := results[0]
	assert.False(t, broken.Success)
	assert.Contains(t, broken.Error, "msh:")

	chair := results[1]
	require.True(t, chair.Success, chair.Error)
	assert.Equal(t, 1, chair.Groups)
	assert.Equal(t, 1, chair.Meshes)
	assert.Contains(t, chair.Warnings, "texture not found: missing.dds")
	assert.FileExists(t, filepath.Join(out, "p_chair.glb"))
	assert.FileExists(t, filepath.Join(out, "sub", "set_lobby.glb"))
	assert.FileExists(t, filepath.Join(out, "textures", "chair.webp"))
	assert.NoFileExists(t, filepath.Join(out, "textures", "missing.webp"))

	manifest := filepath.Join(out, "manifest.json")
	require.NoError(t, WriteManifest(manifest, results))
	raw, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var entries []ManifestEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 3)
	assert.Empty(t, entries[0].GLB)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, "p_chair.glb", entries[1].GLB)
	assert.Equal(t, msh.TypeProp, entries[1].Type)
	assert.Equal(t, "sub/set_lobby.glb", entries[2].GLB)
}

func TestGLBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a", "b.glb"), GLBPath("out", Item{Path: "a/b.msh"}))
}
