package msh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movies-msh/internal/scene"
)

func fixedIDs() func() uint32 {
	next := uint32(1000)
	return func() uint32 { next++; return next }
}

func triangleControl() *scene.ControlMesh {
	return &scene.ControlMesh{
		Positions: [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}},
		Faces:     [][3]uint16{{0, 1, 2}},
	}
}

func sampleScene() *scene.Scene {
	quad := scene.Mesh{
		Name:      "floor",
		Material:  "wood",
		Positions: [][3]float64{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		Normals:   [][3]float64{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Faces: []scene.Face{{
			Verts:      []int{0, 1, 2, 3},
			UV:         [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			LightmapUV: [][2]float64{{0, 0}, {0.5, 0}, {0.5, 0.5}, {0, 0.5}},
		}},
		FloorReflections: true,
		ID:               &scene.MeshID{Index: 7, Vertex: -1, Skeleton: 0},
	}
	head := scene.Mesh{
		Name:      "head",
		Material:  "skin",
		Transform: &scene.Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0.5}},
		Positions: [][3]float64{{0, 0, 1}, {0.2, 0, 1}, {0.2, 0.2, 1.2}, {0, 0.2, 1.2}},
		Normals:   [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.6, 0.8, 0}},
		Faces: []scene.Face{
			{Verts: []int{0, 1, 2}, UV: [][2]float64{{0, 0}, {1, 0}, {1, 1}}},
			{Verts: []int{0, 2, 3}, UV: [][2]float64{{0.25, 0.5}, {1, 1}, {0, 1}}},
		},
		Weights: [][]scene.Influence{
			{{Bone: "neck", Weight: 0.75}, {Bone: "root", Weight: 0.25}},
			{{Bone: "root", Weight: 1}},
			{{Bone: "neck", Weight: 1}},
			{},
		},
		NeckConnect:    []int{0},
		NeckPoints:     map[int]int{0: 4},
		BonesPerVertex: 2,
	}
	return &scene.Scene{
		Type:   TypeMaleCostume,
		Flags:  scene.Flags{HideActorHair: true, ChildMesh: true},
		Images: []string{"wood.tga", "skin.tga", "wood_lm.tga"},
		Materials: []scene.Material{
			{Name: "wood", Textures: [4]string{"wood.tga", "", "wood_lm.tga", ""}, Color: scene.Color{R: 200, G: 150, B: 100, A: 255}, WrapU: true, WrapV: true},
			{Name: "skin", Textures: [4]string{"skin.tga"}, Color: scene.Color{R: 255, G: 255, B: 255, A: 255}, DoubleSided: true, ScrollU: -2},
		},
		Controls: scene.ControlMeshes{Clickable: triangleControl(), Shadow: triangleControl()},
		Rooms:    []scene.Room{{Name: "lobby", Mesh: *triangleControl()}},
		Groups: []scene.Group{
			{Name: "00", Pivot: scene.Identity(), Meshes: []scene.Mesh{quad}},
			{Name: "01", Pivot: scene.Identity(), Land: true, Hidden: &scene.Hidden{On: 3, Off: 9}, Meshes: []scene.Mesh{head}},
		},
		Skeleton: &scene.Skeleton{Type: "Human", Bones: []scene.Bone{
			{Name: "root", Matrix: scene.Identity()},
			{Name: "neck", Parent: "root", Matrix: scene.Matrix{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}, {0, 0, 1.5}}},
		}},
		Anchors: []scene.Anchor{{Name: "door", Matrix: scene.Identity()}},
		Shapes:  []scene.Shape{{Matrix: scene.Identity(), Dimensions: [3]float32{1, 2, 3}}},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	data, warnings, err := EncodeBytes(sampleScene(), EncodeOptions{NewID: fixedIDs(), Workers: 3})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	doc, err := DecodeBytes(data, DecodeOptions{MeshType: TypeMaleCostume})
	require.NoError(t, err)
	assert.Empty(t, doc.Warnings)

	h := doc.Header
	assert.Equal(t, uint32(Version), h.Version)
	assert.Equal(t, uint32(3), h.ImageCount)
	assert.Equal(t, uint32(2), h.MaterialCount)
	assert.Equal(t, uint32(2), h.GroupCount)
	assert.True(t, h.HasBones)
	assert.True(t, h.HasClickable)
	assert.True(t, h.Shadow)
	assert.False(t, h.Collision)
	assert.True(t, h.HideActorHair)
	assert.True(t, h.Shapes)
	assert.True(t, h.Rooms)
	assert.True(t, h.ChildMesh)
	assert.False(t, h.HasNamedGroups)
	assert.False(t, h.HasStaticAnim)
	assert.Equal(t, uint8(1), h.AnchorCount)
	assert.Equal(t, uint32(1), h.ShapeCount)
	assert.Equal(t, uint32(1), h.RoomCount)

	assert.Equal(t, []string{"wood.tga", "skin.tga", "wood_lm.tga"}, doc.Images)
	assert.Equal(t, [4]int8{0, -1, 2, -1}, doc.Materials[0].Maps)
	assert.True(t, doc.Materials[0].HasUV)
	assert.NotNil(t, doc.Controls.Clickable)
	assert.NotNil(t, doc.Controls.Shadow)
	assert.Nil(t, doc.Controls.Collision)
	assert.Equal(t, "lobby", doc.Rooms[0].Name)

	require.Len(t, doc.Groups, 2)
	floor := doc.Groups[0].Meshes[0]
	assert.True(t, floor.Flags.Lightmap)
	assert.True(t, floor.Flags.MeshID)
	assert.Equal(t, uint32(7), floor.IndexID)
	assert.Equal(t, []uint16{0, 1, 2, 0, 2, 3}, floor.Indices)
	assert.InDelta(t, 0.5, floor.LightmapUVs[2][0], 1e-4)

	g1 := doc.Groups[1]
	assert.True(t, g1.Land)
	assert.True(t, g1.HasHidden)
	assert.Equal(t, uint16(3), g1.HiddenOn)
	assert.Equal(t, uint16(9), g1.HiddenOff)
	head := g1.Meshes[0]
	assert.Len(t, head.Positions, 5)
	assert.InDelta(t, 1.5, head.Positions[0][2], 1e-3)
	assert.Equal(t, [4]int8{1, 0, 0, 0}, head.Weights[0].Bones)
	assert.Equal(t, []NeckConnect{
		{Vertex: 0, Point: 4, Position: MaleNeck[4]},
		{Vertex: 4, Point: 4, Position: MaleNeck[4]},
	}, head.Neck)

	require.NotNil(t, doc.Skeleton)
	assert.Equal(t, "Human", doc.Skeleton.Type())
	assert.Equal(t, int32(0), doc.Skeleton.Bones[1].Parent)
	assert.Equal(t, scene.Matrix{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}, {0, 0, 1.5}}, doc.Skeleton.Bones[1].Matrix)
	assert.Equal(t, "door", doc.Anchors[0].Name)
	assert.Equal(t, [3]float32{1, 2, 3}, doc.Shapes[0].Dimensions)
}

func TestEncode_Idempotent(t *testing.T) {
	first, _, err := EncodeBytes(sampleScene(), EncodeOptions{NewID: fixedIDs()})
	require.NoError(t, err)

	doc, err := DecodeBytes(first, DecodeOptions{MeshType: TypeMaleCostume})
	require.NoError(t, err)
	s, err := doc.Scene()
	require.NoError(t, err)
	assert.Equal(t, "Human", s.Skeleton.Type)
	assert.Equal(t, "Material.001", s.Groups[1].Meshes[0].Material)

	second, _, err := EncodeBytes(s, EncodeOptions{NewID: fixedIDs()})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecode_BadVersion(t *testing.T) {
	data := make([]byte, 64)
	binary.LittleEndian.PutUint32(data, 7)
	_, err := DecodeBytes(data, DecodeOptions{})
	require.Error(t, err)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "header", fe.Section)
	assert.Equal(t, 4, fe.Offset)
	assert.True(t, errors.Is(err, ErrVersion))
}

func TestDecode_Truncated(t *testing.T) {
	data, _, err := EncodeBytes(sampleScene(), EncodeOptions{NewID: fixedIDs()})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		size    int
		section string
	}{
		{"empty", 0, "header"},
		{"inside header", 10, "header"},
		{"inside shapes", len(data) - 3, "shapes"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBytes(data[:tc.size], DecodeOptions{})
			require.Error(t, err)
			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.section, fe.Section)
			assert.True(t, errors.Is(err, ErrTruncated))
		})
	}
}

func TestDecode_Uncompressed(t *testing.T) {
	s := &scene.Scene{Groups: []scene.Group{{Name: "00", Meshes: []scene.Mesh{{
		Positions: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:     []scene.Face{{Verts: []int{0, 1, 2}}},
	}}}}}
	data, _, err := EncodeBytes(s, EncodeOptions{})
	require.NoError(t, err)
	const flagsAt = headerSize + 52 + 12
	require.Equal(t, uint8(meshCompressed), data[flagsAt]&meshCompressed)
	data[flagsAt] &^= meshCompressed

	_, err = DecodeBytes(data, DecodeOptions{})
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "groups", fe.Section)
	assert.True(t, errors.Is(err, ErrUncompressed))
}

func TestEncode_ControlMeshPadding(t *testing.T) {
	size := func(faces int) int {
		cm := triangleControl()
		cm.Faces = make([][3]uint16, faces)
		data, _, err := EncodeBytes(&scene.Scene{Controls: scene.ControlMeshes{Clickable: cm}}, EncodeOptions{})
		require.NoError(t, err)
		doc, err := DecodeBytes(data, DecodeOptions{})
		require.NoError(t, err)
		assert.Len(t, doc.Controls.Clickable.Faces, faces)
		return len(data)
	}
	assert.Equal(t, headerSize+8+36+7*6+2, size(7))
	assert.Equal(t, headerSize+8+36+8*6, size(8))
}

// fanScene is one group holding a triangle fan of the given face count.
func fanScene(faces int) *scene.Scene {
	m := scene.Mesh{Positions: [][3]float64{{0, 0, 0}}}
	for i := 0; i <= faces; i++ {
		a := float64(i) * math.Pi / 8
		m.Positions = append(m.Positions, [3]float64{math.Cos(a), math.Sin(a), 0})
	}
	for i := 1; i <= faces; i++ {
		m.Faces = append(m.Faces, scene.Face{Verts: []int{0, i, i + 1}})
	}
	return &scene.Scene{Groups: []scene.Group{{Name: "00", Pivot: scene.Identity(), Meshes: []scene.Mesh{m}}}}
}

func TestEncode_MeshIndexPadding(t *testing.T) {
	// group record, then mesh counts and flags, then ranges
	const indexStart = headerSize + 52 + 16 + 56
	testCases := []struct {
		faces int
		pad   int
	}{
		{7, 2},
		{8, 0},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d faces", tc.faces), func(t *testing.T) {
			s := fanScene(tc.faces)
			data, _, err := EncodeBytes(s, EncodeOptions{})
			require.NoError(t, err)

			verts := tc.faces + 2
			vertexStart := indexStart + tc.faces*6 + tc.pad
			require.Len(t, data, vertexStart+verts*16)
			if tc.pad > 0 {
				assert.Equal(t, []byte{0, 0}, data[vertexStart-2:vertexStart])
			}
			// vertex 1 sits at (1, 0, 0): x at the top of the range, y at the bottom
			assert.Equal(t, uint16(0xffff), binary.LittleEndian.Uint16(data[vertexStart+16:]))
			assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[vertexStart+18:]))

			doc, err := DecodeBytes(data, DecodeOptions{})
			require.NoError(t, err)
			m := doc.Groups[0].Meshes[0]
			assert.Equal(t, tc.faces, m.FaceCount())
			require.Len(t, m.Positions, verts)
			for i, p := range s.Groups[0].Meshes[0].Positions {
				assert.InDeltaSlice(t, p[:], m.Positions[i][:], 1e-4, "vertex %d", i)
			}

			back, err := doc.Scene()
			require.NoError(t, err)
			again, _, err := EncodeBytes(back, EncodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestEncode_ReservedFieldsSurvive(t *testing.T) {
	s := fanScene(3)
	s.Groups[0].Reserved = 5
	s.Flags.ChildMeshCount = 4

	data, _, err := EncodeBytes(s, EncodeOptions{})
	require.NoError(t, err)
	// the childmesh count follows the fixed header
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[headerSize:]))
	assert.Equal(t, uint8(5), data[headerSize+4+1])

	doc, err := DecodeBytes(data, DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, doc.Header.ChildMesh)
	assert.Equal(t, uint32(4), doc.Header.ChildMeshCount)
	assert.Equal(t, uint8(5), doc.Groups[0].Reserved)

	back, err := doc.Scene()
	require.NoError(t, err)
	assert.Equal(t, uint8(5), back.Groups[0].Reserved)
	assert.Equal(t, uint32(4), back.Flags.ChildMeshCount)
	again, _, err := EncodeBytes(back, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDecode_NeckPointOutOfTable(t *testing.T) {
	s := fanScene(2)
	s.Type = TypeMaleCostume
	s.Groups[0].Meshes[0].NeckConnect = []int{0}
	s.Groups[0].Meshes[0].NeckPoints = map[int]int{0: 2}
	data, _, err := EncodeBytes(s, EncodeOptions{})
	require.NoError(t, err)

	// the neck pairs close the file; the last word is the point of the only pair
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[len(data)-4:]))
	binary.LittleEndian.PutUint32(data[len(data)-4:], 12)

	_, err = DecodeBytes(data, DecodeOptions{MeshType: TypeMaleCostume})
	require.Error(t, err)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "groups", fe.Section)
	assert.True(t, errors.Is(err, ErrIndexRange))
}

func TestEncode_GeneratedIDsIgnoreWorkers(t *testing.T) {
	s := fanScene(2)
	mesh := s.Groups[0].Meshes[0]
	mesh.ID = &scene.MeshID{Generate: true}
	s.Groups[0].Meshes = nil
	for i := 0; i < 6; i++ {
		s.Groups[0].Meshes = append(s.Groups[0].Meshes, mesh)
	}

	serial, _, err := EncodeBytes(s, EncodeOptions{NewID: fixedIDs(), Workers: 1})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		parallel, _, err := EncodeBytes(s, EncodeOptions{NewID: fixedIDs(), Workers: 4})
		require.NoError(t, err)
		require.Equal(t, serial, parallel)
	}

	doc, err := DecodeBytes(serial, DecodeOptions{})
	require.NoError(t, err)
	for i, m := range doc.Groups[0].Meshes {
		assert.Equal(t, uint32(1001+i), m.IndexID, "mesh %d", i)
	}
}

func TestEncode_NeckFallbackWarnsOnce(t *testing.T) {
	s := fanScene(2)
	s.Type = TypeProp
	s.Groups[0].Meshes[0].NeckConnect = []int{0, 1}
	s.Groups[0].Meshes = append(s.Groups[0].Meshes, s.Groups[0].Meshes[0], s.Groups[0].Meshes[0])

	_, warnings, err := EncodeBytes(s, EncodeOptions{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, Warnings{`mesh type "Prop" has no neck points, using MaleCostume`}, warnings)
}

func TestEncode_Names(t *testing.T) {
	_, _, err := EncodeBytes(&scene.Scene{Images: []string{strings.Repeat("a", 31)}}, EncodeOptions{})
	assert.NoError(t, err)

	var buf bytes.Buffer
	_, err = Encode(&buf, &scene.Scene{Images: []string{strings.Repeat("a", 32)}}, EncodeOptions{})
	require.Error(t, err)
	var ce *ContractError
	assert.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, ErrNameTooLong))
	assert.Zero(t, buf.Len())

	_, _, err = EncodeBytes(&scene.Scene{Images: []string{"日本"}}, EncodeOptions{})
	assert.True(t, errors.Is(err, ErrNameCharset))

	data, _, err := EncodeBytes(&scene.Scene{Images: []string{"Café.tga"}}, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(0xe9), data[headerSize+3])
	doc, err := DecodeBytes(data, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Café.tga"}, doc.Images)
}

func TestEncode_MaterialLayout(t *testing.T) {
	s := &scene.Scene{Materials: []scene.Material{{
		Name:          "m",
		Color:         scene.Color{R: 10, G: 20, B: 30, A: 40},
		DoubleSided:   true,
		AlphaSeparate: true,
		WrapU:         true,
		WrapV:         true,
		AlphaTest:     true,
		AlphaEnvMap:   3,
		SelfLit:       true,
		Additive:      true,
		ScrollU:       1,
		ScrollV:       -1,
		RotUV:         2,
	}}}
	data, _, err := EncodeBytes(s, EncodeOptions{})
	require.NoError(t, err)
	require.Len(t, data, headerSize+materialSize)
	assert.Equal(t, []byte{
		0xff, 0xff, 0xff, 0xff,
		0x05,
		1, 1, 0, 1, 0, 0, 0, 0,
		3,
		0x8c,
		0,
		30, 20, 10, 40,
		1, 0xff, 2, 0,
	}, data[headerSize:])

	doc, err := DecodeBytes(data, DecodeOptions{})
	require.NoError(t, err)
	back, err := doc.Materials[0].toScene("m", nil)
	require.NoError(t, err)
	assert.Equal(t, s.Materials[0], back)
}

func TestEncode_GroupNameFlags(t *testing.T) {
	testCases := []struct {
		names      []string
		static     bool
		named      bool
		nameBlocks int
	}{
		{[]string{"00", "01"}, false, false, 0},
		{[]string{"00", "door"}, false, true, 2},
		{[]string{"x_sa_spin"}, true, true, 1},
		{[]string{"_ca_wheel"}, true, true, 1},
	}
	for _, tc := range testCases {
		t.Run(strings.Join(tc.names, ","), func(t *testing.T) {
			s := &scene.Scene{}
			for _, n := range tc.names {
				s.Groups = append(s.Groups, scene.Group{Name: n})
			}
			data, _, err := EncodeBytes(s, EncodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.static, data[17] == 1)
			assert.Equal(t, tc.named, data[23] == 1)
			assert.Len(t, data, headerSize+52*len(tc.names)+nameSize*tc.nameBlocks)

			doc, err := DecodeBytes(data, DecodeOptions{})
			require.NoError(t, err)
			back, err := doc.Scene()
			require.NoError(t, err)
			for i, g := range back.Groups {
				assert.Equal(t, tc.names[i], g.Name)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		scene *scene.Scene
		want  error
	}{
		{
			name:  "unknown image",
			scene: &scene.Scene{Materials: []scene.Material{{Name: "m", Textures: [4]string{"missing.tga"}}}},
			want:  ErrUnknownImage,
		},
		{
			name:  "duplicate material",
			scene: &scene.Scene{Materials: []scene.Material{{Name: "m"}, {Name: "m"}}},
			want:  ErrDuplicateName,
		},
		{
			name: "parent after child",
			scene: &scene.Scene{Skeleton: &scene.Skeleton{Bones: []scene.Bone{
				{Name: "hand", Parent: "arm"},
				{Name: "arm"},
			}}},
			want: ErrUnknownBone,
		},
		{
			name:  "control mesh index",
			scene: &scene.Scene{Controls: scene.ControlMeshes{Collision: &scene.ControlMesh{Faces: [][3]uint16{{0, 1, 2}}}}},
			want:  ErrIndexRange,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := EncodeBytes(tc.scene, EncodeOptions{})
			require.Error(t, err)
			var ce *ContractError
			assert.True(t, errors.As(err, &ce), "got %T", err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestEncode_UnknownRigType(t *testing.T) {
	s := &scene.Scene{Skeleton: &scene.Skeleton{Type: "Giraffe", Bones: []scene.Bone{{Name: "root"}}}}
	data, warnings, err := EncodeBytes(s, EncodeOptions{NewID: fixedIDs()})
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	doc, err := DecodeBytes(data, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1001), doc.Skeleton.RigID)
}

func TestStreamBasis(t *testing.T) {
	m := scene.Matrix{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}}
	st := ToStreamBasis(m)
	assert.Equal(t, scene.Matrix{{4, 5, 6}, {7, 8, 9}, {1, 2, 3}, {10, 11, 12}}, st)
	assert.Equal(t, m, FromStreamBasis(st))
}

func TestRigs(t *testing.T) {
	name, ok := RigType(507812352)
	assert.True(t, ok)
	assert.Equal(t, "Human", name)
	id, ok := RigID("Horse")
	assert.True(t, ok)
	assert.Equal(t, uint32(994903296), id)
	_, ok = RigType(1)
	assert.False(t, ok)
}
