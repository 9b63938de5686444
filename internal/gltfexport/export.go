// Package gltfexport materializes decoded MSH documents as glTF 2.0 scenes.
package gltfexport

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"movies-msh/internal/msh"
	"movies-msh/internal/scene"
	"movies-msh/internal/skeleton"
	"movies-msh/internal/texture"
)

// zUpToYUp rotates the Z-up game space into the Y-up glTF space (-90° about X).
var zUpToYUp = [4]float32{-0.70710677, 0, 0, 0.70710677}

// Options controls what goes into the exported scene.
type Options struct {
	Name string

	// Textures resolves image names; nil exports materials without textures.
	Textures texture.Resolver

	// Controls adds the control meshes and rooms as untextured nodes.
	Controls bool
}

type textureKey struct {
	image        int
	wrapU, wrapV bool
}

type exporter struct {
	doc  *gltf.Document
	src  *msh.Document
	opts Options

	root      uint32
	images    map[int]*uint32 // image index → gltf image, nil when unresolved
	textures  map[textureKey]uint32
	materials []uint32
	skin      *uint32
	warnings  msh.Warnings
}

// Export converts a decoded document into a glTF document. Missing textures are
// reported as warnings.
func Export(src *msh.Document, opts Options) (*gltf.Document, msh.Warnings, error) {
	e := &exporter{
		doc:      gltf.NewDocument(),
		src:      src,
		opts:     opts,
		images:   make(map[int]*uint32),
		textures: make(map[textureKey]uint32),
	}
	if err := e.export(); err != nil {
		return nil, e.warnings, err
	}
	return e.doc, e.warnings, nil
}

func (e *exporter) addNode(n *gltf.Node, parent uint32) uint32 {
	idx := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, n)
	e.doc.Nodes[parent].Children = append(e.doc.Nodes[parent].Children, idx)
	return idx
}

func (e *exporter) export() error {
	name := e.opts.Name
	if name == "" {
		name = "msh"
	}
	e.root = uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
		Name:     name,
		Rotation: zUpToYUp,
		Extras:   headerExtras(&e.src.Header, e.src.MeshType),
	})
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, e.root)

	for i := range e.src.Materials {
		e.materials = append(e.materials, e.material(i))
	}

	if e.src.Skeleton != nil && len(e.src.Skeleton.Bones) > 0 {
		e.exportSkeleton(e.src.Skeleton)
	}

	for gi := range e.src.Groups {
		if err := e.exportGroup(gi); err != nil {
			return err
		}
	}

	for _, a := range e.src.Anchors {
		e.addNode(&gltf.Node{Name: a.Name, Matrix: a.Matrix.Mat4(), Extras: map[string]any{"anchor": true}}, e.root)
	}
	for i, s := range e.src.Shapes {
		e.addNode(&gltf.Node{
			Name:   fmt.Sprintf("shape.%03d", i),
			Matrix: s.Matrix.Mat4(),
			Extras: map[string]any{"dimensions": s.Dimensions, "reserved": s.Reserved},
		}, e.root)
	}

	if e.opts.Controls {
		for _, slot := range e.src.Controls.Slots() {
			if *slot.Mesh != nil {
				e.exportControl(slot.Name, *slot.Mesh)
			}
		}
		for _, r := range e.src.Rooms {
			e.exportControl(r.Name, &r.Mesh)
		}
	}
	return nil
}

func headerExtras(h *msh.Header, meshType string) map[string]any {
	extras := map[string]any{"version": h.Version}
	if meshType != "" {
		extras["type"] = meshType
	}
	for k, v := range map[string]bool{
		"hide_actor_head":  h.HideActorHead,
		"hide_actor_hair":  h.HideActorHair,
		"auto_animated":    h.AutoAnimated,
		"tex_replace_mode": h.TexReplaceMode,
		"blueprint":        h.Blueprint,
	} {
		if v {
			extras[k] = true
		}
	}
	return extras
}

func (e *exporter) exportSkeleton(sk *msh.Skeleton) {
	pose := skeleton.Build(sk.Bones)
	joints := make([]uint32, len(sk.Bones))
	base := uint32(len(e.doc.Nodes))
	for i, b := range sk.Bones {
		t, r, s := skeleton.Decompose(pose.Local[i])
		joints[i] = base + uint32(i)
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: t,
			Rotation:    r.V.Vec4(r.W),
			Scale:       s,
		})
	}
	for i, children := range pose.Children {
		for _, c := range children {
			e.doc.Nodes[joints[i]].Children = append(e.doc.Nodes[joints[i]].Children, joints[c])
		}
	}
	for _, r := range pose.Roots {
		e.doc.Nodes[e.root].Children = append(e.doc.Nodes[e.root].Children, joints[r])
	}

	extras := map[string]any{"rig_id": sk.RigID}
	if t := sk.Type(); t != "" {
		extras["type"] = t
	}
	skin := uint32(len(e.doc.Skins))
	e.doc.Skins = append(e.doc.Skins, &gltf.Skin{
		Name:                "armature",
		Joints:              joints,
		Skeleton:            gltf.Index(joints[pose.Roots[0]]),
		InverseBindMatrices: gltf.Index(e.addMatrices(pose.InverseBind)),
		Extras:              extras,
	})
	e.skin = &skin
}

// addMatrices writes a MAT4 accessor.
func (e *exporter) addMatrices(mats []mgl32.Mat4) uint32 {
	cols := make([][4]float32, 0, len(mats)*4)
	for _, m := range mats {
		for c := 0; c < 4; c++ {
			cols = append(cols, m.Col(c))
		}
	}
	acc := modeler.WriteTangent(e.doc, cols)
	e.doc.Accessors[acc].Type = gltf.AccessorMat4
	e.doc.Accessors[acc].Count /= 4
	e.doc.BufferViews[*e.doc.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

func (e *exporter) exportGroup(gi int) error {
	g := &e.src.Groups[gi]
	name := e.src.GroupName(gi)
	extras := map[string]any{"pivot": g.Pivot}
	if g.HasHidden {
		extras["hidden"] = [2]uint16{g.HiddenOn, g.HiddenOff}
	}
	for k, v := range map[string]bool{"trans_anim": g.TransAnim, "car_body": g.CarBody, "land": g.Land, "hide_reflection": g.HideReflection} {
		if v {
			extras[k] = true
		}
	}
	node := e.addNode(&gltf.Node{Name: name, Extras: extras}, e.root)

	for mi := range g.Meshes {
		m := &g.Meshes[mi]
		mesh, err := e.mesh(m, msh.MeshName(gi, mi))
		if err != nil {
			return errors.Wrapf(err, "gltf: group %q mesh %d", name, mi)
		}
		n := &gltf.Node{Name: mesh.Name, Mesh: gltf.Index(uint32(len(e.doc.Meshes)))}
		e.doc.Meshes = append(e.doc.Meshes, mesh)
		if m.Flags.Weights && e.skin != nil {
			n.Skin = e.skin
		}
		e.addNode(n, node)
	}
	return nil
}

func (e *exporter) mesh(m *msh.Mesh, name string) (*gltf.Mesh, error) {
	n := len(m.Positions)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	uvs := make([][2]float32, n)
	for v := 0; v < n; v++ {
		positions[v] = vec3(m.Positions[v])
		normal := mgl32.Vec3(vec3(m.Normals[v]))
		if normal.Len() > 0.5 {
			normal = normal.Normalize()
		}
		normals[v] = normal
		uvs[v] = flipV(m.UVs[v])
	}

	indices := make([]uint32, len(m.Indices))
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return nil, errors.Wrapf(msh.ErrIndexRange, "index %d of %d", idx, n)
		}
		indices[i] = uint32(idx)
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(e.doc, positions),
		"NORMAL":     modeler.WriteNormal(e.doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(e.doc, uvs),
	}
	if m.Flags.Lightmap {
		lm := make([][2]float32, n)
		for v := range lm {
			lm[v] = flipV(m.LightmapUVs[v])
		}
		attributes["TEXCOORD_1"] = modeler.WriteTextureCoord(e.doc, lm)
	}
	if m.Flags.Weights && e.skin != nil {
		joints, weights := jointWeights(m.Weights, len(e.src.Skeleton.Bones))
		attributes["JOINTS_0"] = modeler.WriteJoints(e.doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(e.doc, weights)
	}

	prim := &gltf.Primitive{
		Indices:    gltf.Index(modeler.WriteIndices(e.doc, indices)),
		Attributes: attributes,
	}
	if int(m.MaterialID) < len(e.materials) {
		prim.Material = gltf.Index(e.materials[m.MaterialID])
	}

	extras := map[string]any{}
	if m.Flags.MeshID {
		extras["id"] = [3]int64{int64(m.IndexID), int64(m.VertexID), int64(m.SkeletonID)}
	}
	if len(m.Neck) > 0 {
		pairs := make([][2]uint32, len(m.Neck))
		for i, nc := range m.Neck {
			pairs[i] = [2]uint32{nc.Vertex, nc.Point}
		}
		extras["neck"] = pairs
	}
	for k, v := range map[string]bool{
		"floor_reflections": m.Flags.FloorReflections,
		"no_outline":        m.Flags.NoOutline,
		"landscape":         m.Flags.Landscape,
		"minute_hand":       m.Flags.MinuteHand,
		"hour_hand":         m.Flags.HourHand,
		"static_backdrop":   m.Flags.StaticBackdrop,
	} {
		if v {
			extras[k] = true
		}
	}
	mesh := &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}}
	if len(extras) > 0 {
		mesh.Extras = extras
	}
	return mesh, nil
}

// jointWeights converts padded MSH influences into glTF joints and normalized
// weights. Influences on bones past the armature are dropped and vertices
// left without influences follow the first joint.
func jointWeights(vw []msh.VertexWeights, bones int) ([][4]uint16, [][4]float32) {
	joints := make([][4]uint16, len(vw))
	weights := make([][4]float32, len(vw))
	for v := range vw {
		var sum float32
		i := 0
		for _, bi := range vw[v].Influences() {
			if bi.Bone >= bones {
				continue
			}
			joints[v][i] = uint16(bi.Bone)
			weights[v][i] = bi.Weight
			sum += bi.Weight
			i++
		}
		if sum == 0 {
			weights[v] = [4]float32{1, 0, 0, 0}
			continue
		}
		for i := range weights[v] {
			weights[v][i] /= sum
		}
	}
	return joints, weights
}

func (e *exporter) exportControl(name string, cm *scene.ControlMesh) {
	if len(cm.Positions) == 0 {
		return
	}
	indices := make([]uint32, 0, len(cm.Faces)*3)
	for _, f := range cm.Faces {
		indices = append(indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	mesh := &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(e.doc, indices)),
			Attributes: map[string]uint32{"POSITION": modeler.WritePosition(e.doc, cm.Positions)},
		}},
		Extras: map[string]any{"control": true},
	}
	e.addNode(&gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(e.doc.Meshes)))}, e.root)
	e.doc.Meshes = append(e.doc.Meshes, mesh)
}

func vec3(p [3]float64) [3]float32 {
	return [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
}

// flipV moves the origin to the top-left corner used by glTF.
func flipV(uv [2]float64) [2]float32 {
	return [2]float32{float32(uv[0]), float32(1 - uv[1])}
}

// WriteGLB writes doc as binary glTF.
func WriteGLB(w io.Writer, doc *gltf.Document) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "gltf: encode")
	}
	return nil
}

// SaveGLB writes doc to path, creating parent directories. The file is only
// created once encoding succeeded.
func SaveGLB(path string, doc *gltf.Document) error {
	var buf bytes.Buffer
	if err := WriteGLB(&buf, doc); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "gltf: mkdir %s", filepath.Dir(path))
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0644), "gltf: write %s", path)
}
