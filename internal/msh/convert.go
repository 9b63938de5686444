package msh

import (
	"fmt"

	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

// GroupName is the name given to unnamed group g.
func GroupName(g int) string { return fmt.Sprintf("%02d", g) }

// MeshName is the name given to mesh m of group g.
func MeshName(g, m int) string { return fmt.Sprintf("%02d.%03d", g, m) }

// MaterialName is the name given to material i.
func MaterialName(i int) string { return fmt.Sprintf("Material.%03d", i) }

// GroupName returns the stored name of group gi, or its default name.
func (d *Document) GroupName(gi int) string {
	if gi < len(d.GroupNames) {
		return d.GroupNames[gi]
	}
	return GroupName(gi)
}

// Scene converts the document into a scene description that encodes back to the same bytes.
func (d *Document) Scene() (*scene.Scene, error) {
	h := &d.Header
	s := &scene.Scene{
		Type: d.MeshType,
		Flags: scene.Flags{
			HideActorHead:  h.HideActorHead,
			HideActorHair:  h.HideActorHair,
			AutoAnimated:   h.AutoAnimated,
			TexReplaceMode: h.TexReplaceMode,
			StaticAnim:     h.HasStaticAnim,
			NamedGroups:    h.HasNamedGroups,
			Shapes:         h.Shapes,
			ChildMesh:      h.ChildMesh,
			ChildMeshCount: h.ChildMeshCount,
			Rooms:          h.Rooms,
			Blueprint:      h.Blueprint,
			Unknown:        h.Unknown,
			Outline:        h.Outline,
		},
		Images:   d.Images,
		Controls: d.Controls,
		Rooms:    d.Rooms,
		Anchors:  d.Anchors,
		Shapes:   d.Shapes,
	}

	for i := range d.Materials {
		m, err := d.Materials[i].toScene(MaterialName(i), d.Images)
		if err != nil {
			return nil, err
		}
		s.Materials = append(s.Materials, m)
	}

	var boneNames []string
	if d.Skeleton != nil {
		sk := &scene.Skeleton{RigID: d.Skeleton.RigID, Type: d.Skeleton.Type()}
		for _, b := range d.Skeleton.Bones {
			sb := scene.Bone{Name: b.Name, Matrix: b.Matrix}
			if b.Parent >= 0 {
				sb.Parent = d.Skeleton.Bones[b.Parent].Name
			}
			sk.Bones = append(sk.Bones, sb)
			boneNames = append(boneNames, b.Name)
		}
		s.Skeleton = sk
	}

	for gi := range d.Groups {
		g := &d.Groups[gi]
		sg := scene.Group{
			Name:           d.GroupName(gi),
			Reserved:       g.Reserved,
			Pivot:          g.Pivot,
			TransAnim:      g.TransAnim,
			CarBody:        g.CarBody,
			Land:           g.Land,
			HideReflection: g.HideReflection,
		}
		if g.HasHidden {
			sg.Hidden = &scene.Hidden{On: g.HiddenOn, Off: g.HiddenOff}
		}
		for mi := range g.Meshes {
			sm, err := d.meshToScene(&g.Meshes[mi], MeshName(gi, mi), s.Materials, boneNames)
			if err != nil {
				return nil, errors.Wrapf(err, "msh: group %d mesh %d", gi, mi)
			}
			sg.Meshes = append(sg.Meshes, sm)
		}
		s.Groups = append(s.Groups, sg)
	}
	return s, nil
}

func (d *Document) meshToScene(m *Mesh, name string, materials []scene.Material, bones []string) (scene.Mesh, error) {
	sm := scene.Mesh{
		Name:               name,
		Positions:          m.Positions,
		Normals:            m.Normals,
		HasNeckConnect:     m.Flags.NeckConnect,
		FloorReflections:   m.Flags.FloorReflections,
		NoOutline:          m.Flags.NoOutline,
		Landscape:          m.Flags.Landscape,
		AcceptsActorShadow: m.Flags.AcceptsActorShadow,
		MinuteHand:         m.Flags.MinuteHand,
		HourHand:           m.Flags.HourHand,
		StaticBackdrop:     m.Flags.StaticBackdrop,
		UnknownFlag:        m.UnknownFlag,
		BonesPerVertex:     m.BonesPerVertex,
	}
	ranges := m.Ranges
	sm.Ranges = &ranges

	switch {
	case int(m.MaterialID) < len(materials):
		sm.Material = materials[m.MaterialID].Name
	case m.MaterialID != 0:
		return sm, errors.Wrapf(ErrIndexRange, "material %d of %d", m.MaterialID, len(materials))
	}

	if m.Flags.MeshID {
		sm.ID = &scene.MeshID{Index: m.IndexID, Vertex: m.VertexID, Skeleton: m.SkeletonID}
	}

	sm.Faces = make([]scene.Face, m.FaceCount())
	for f := range sm.Faces {
		tri := m.Indices[f*3 : f*3+3]
		face := scene.Face{
			Verts: []int{int(tri[0]), int(tri[1]), int(tri[2])},
			UV:    [][2]float64{m.UVs[tri[0]], m.UVs[tri[1]], m.UVs[tri[2]]},
		}
		if m.Flags.Lightmap {
			face.LightmapUV = [][2]float64{m.LightmapUVs[tri[0]], m.LightmapUVs[tri[1]], m.LightmapUVs[tri[2]]}
		}
		sm.Faces[f] = face
	}

	if m.Flags.Weights {
		sm.Weights = make([][]scene.Influence, len(m.Weights))
		for v, vw := range m.Weights {
			infl := []scene.Influence{}
			for _, bi := range vw.Influences() {
				if bi.Bone >= len(bones) {
					return sm, errors.Wrapf(ErrUnknownBone, "vertex %d bone %d of %d", v, bi.Bone, len(bones))
				}
				infl = append(infl, scene.Influence{Bone: bones[bi.Bone], Weight: bi.Weight})
			}
			sm.Weights[v] = infl
		}
	}

	if len(m.Neck) > 0 {
		sm.NeckPoints = make(map[int]int, len(m.Neck))
		for _, nc := range m.Neck {
			v := int(nc.Vertex)
			if _, seen := sm.NeckPoints[v]; !seen {
				sm.NeckConnect = append(sm.NeckConnect, v)
			}
			sm.NeckPoints[v] = int(nc.Point)
		}
	}
	return sm, nil
}
