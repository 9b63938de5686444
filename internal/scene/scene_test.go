package scene

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix(t *testing.T) {
	m := Matrix{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}, {1, 2, 3}} // 90° about Z, then translate
	assert.Equal(t, m, FromMat4(m.Mat4()))
	assert.Equal(t, [3]float32{1, 2, 3}, m.Translation())

	p := m.Apply([3]float64{1, 0, 0})
	assert.InDeltaSlice(t, []float64{1, 3, 3}, p[:], 1e-9)

	shift := Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {10, 0, 0}}
	both := m.Mul(shift) // m first, then shift
	q := both.Apply([3]float64{1, 0, 0})
	assert.InDeltaSlice(t, []float64{11, 3, 3}, q[:], 1e-6)

	assert.Equal(t, Identity(), Identity().Mul(Identity()))
}

func TestComputeBounds(t *testing.T) {
	s := &Scene{
		Controls: ControlMeshes{Collision: &ControlMesh{Positions: [][3]float32{{-4, 1, 1}}}},
		Rooms:    []Room{{Name: "r", Mesh: ControlMesh{Positions: [][3]float32{{1, 9, 1}}}}},
		Groups: []Group{{
			Pivot: Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, -6}},
			Meshes: []Mesh{{
				Transform: &Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 5}},
				Positions: [][3]float64{{1, 1, 1}, {2, 2, 2}},
			}},
		}},
		Anchors: []Anchor{{Name: "a", Matrix: Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {3, -2, 0}}}},
		Shapes:  []Shape{{Matrix: Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {8, 0, 0}}}},
	}
	assert.Equal(t, Box{Min: [3]float32{-4, -2, -6}, Max: [3]float32{8, 9, 7}}, s.ComputeBounds())

	// the origin is always inside
	far := &Scene{Anchors: []Anchor{{Matrix: Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {5, 5, 5}}}}}
	assert.Equal(t, Box{Max: [3]float32{5, 5, 5}}, far.ComputeBounds())
}

func TestWorldPositions(t *testing.T) {
	m := &Mesh{Positions: [][3]float64{{1, 2, 3}}}
	assert.Equal(t, m.Positions, m.WorldPositions())
	m.Transform = &Matrix{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}, {0, 0, 1}}
	assert.Equal(t, [][3]float64{{2, 4, 7}}, m.WorldPositions())
	assert.Equal(t, [3]float64{1, 2, 3}, m.Positions[0])
}

func TestYAMLRoundTrip(t *testing.T) {
	s := &Scene{
		Name:   "p_test.msh",
		Type:   "Prop",
		Flags:  Flags{HideActorHair: true, Outline: 2},
		Images: []string{"a.tga"},
		Materials: []Material{{
			Name:     "Material.000",
			Textures: [4]string{"a.tga"},
			Color:    Color{R: 1, G: 2, B: 3, A: 4},
			WrapU:    true,
			ScrollU:  -3,
		}},
		Groups: []Group{{
			Name:   "00",
			Pivot:  Identity(),
			Hidden: &Hidden{On: 1, Off: 2},
			Meshes: []Mesh{{
				Name:        "00.000",
				Material:    "Material.000",
				Positions:   [][3]float64{{0.1, 0.2, 0.30000000000000004}, {1, 0, 0}, {0, 1, 0}},
				Normals:     [][3]float64{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
				Faces:       []Face{{Verts: []int{0, 1, 2}, UV: [][2]float64{{0, 0}, {1, 0}, {0, 1}}}},
				Weights:     [][]Influence{{{Bone: "root", Weight: 1}}, {}, {}},
				NeckConnect: []int{0},
				NeckPoints:  map[int]int{0: 3},
				ID:          &MeshID{Index: 5, Vertex: -1},
				Ranges:      &Ranges{PosMax: [3]float32{1, 1, 1}, UVMax: [2]float32{1, 1}, LightmapMin: [2]float32{0, 1}, LightmapMax: [2]float32{0, 1}},
			}},
		}},
		Skeleton: &Skeleton{RigID: 1, Type: "Human", Bones: []Bone{{Name: "root", Matrix: Identity()}}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, Save(path, s))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestRead_UnknownField(t *testing.T) {
	_, err := Read(strings.NewReader("name: x\nbogus: 1\n"))
	assert.ErrorContains(t, err, "scene: decode yaml")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "scene: open")
}

func TestHasLightmap(t *testing.T) {
	lm := [][2]float64{{0, 0}, {1, 0}, {1, 1}}
	testCases := []struct {
		name  string
		faces []Face
		want  bool
	}{
		{"no faces", nil, false},
		{"none", []Face{{Verts: []int{0, 1, 2}}}, false},
		{"first face", []Face{{Verts: []int{0, 1, 2}, LightmapUV: lm}, {Verts: []int{0, 2, 3}}}, true},
		{"later face", []Face{{Verts: []int{0, 1, 2}}, {Verts: []int{0, 2, 3}, LightmapUV: lm}}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Mesh{Faces: tc.faces}
			assert.Equal(t, tc.want, m.HasLightmap())
		})
	}
}
