package msh

import (
	"sort"

	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

const maxVertices = 1 << 16

type corner struct {
	v      int
	uv, lm [2]float64
}

type triangle [3]corner

// triangulate splits quads into (0,1,2) and (0,2,3).
func triangulate(sm *scene.Mesh, hasLM bool) ([]triangle, error) {
	tris := make([]triangle, 0, len(sm.Faces)*2)
	for fi, f := range sm.Faces {
		n := len(f.Verts)
		if n != 3 && n != 4 {
			return nil, errors.Wrapf(ErrNotPolygon, "face %d has %d vertices", fi, n)
		}
		if f.UV != nil && len(f.UV) != n {
			return nil, errors.Wrapf(ErrIndexRange, "face %d has %d uvs for %d vertices", fi, len(f.UV), n)
		}
		if hasLM && len(f.LightmapUV) != n {
			return nil, errors.Wrapf(ErrIndexRange, "face %d has %d lightmap uvs for %d vertices", fi, len(f.LightmapUV), n)
		}
		var c [4]corner
		for i, v := range f.Verts {
			if v < 0 || v >= len(sm.Positions) {
				return nil, errors.Wrapf(ErrIndexRange, "face %d vertex %d of %d", fi, v, len(sm.Positions))
			}
			c[i].v = v
			if f.UV != nil {
				c[i].uv = f.UV[i]
			}
			if hasLM {
				c[i].lm = f.LightmapUV[i]
			}
		}
		tris = append(tris, triangle{c[0], c[1], c[2]})
		if n == 4 {
			tris = append(tris, triangle{c[0], c[2], c[3]})
		}
	}
	return tris, nil
}

// computeRanges returns the stored ranges for a mesh without fixed ranges.
func computeRanges(box scene.Box, tris []triangle, hasLM bool) scene.Ranges {
	var uvMin, uvMax, lmMin, lmMax [2]float64
	for ti, t := range tris {
		for ci, c := range t {
			for a := 0; a < 2; a++ {
				if ti == 0 && ci == 0 {
					uvMin[a], uvMax[a] = c.uv[a], c.uv[a]
					lmMin[a], lmMax[a] = c.lm[a], c.lm[a]
					continue
				}
				uvMin[a], uvMax[a] = min(uvMin[a], c.uv[a]), max(uvMax[a], c.uv[a])
				lmMin[a], lmMax[a] = min(lmMin[a], c.lm[a]), max(lmMax[a], c.lm[a])
			}
		}
	}
	if !hasLM {
		lmMin, lmMax = [2]float64{}, [2]float64{}
	}
	return storedRanges(box, uvMin, uvMax, lmMin, lmMax)
}

type splitVertex struct {
	orig     int
	uv, lm   [2]float64
	uvc, lmc [2]uint16
	set      bool
}

// vertexSplit assigns every triangle corner a vertex that carries exactly one
// texture coordinate. A corner reuses the lowest-numbered copy of its position
// with identical quantized coordinates, or gets a new copy numbered above all
// referenced positions.
type vertexSplit struct {
	verts   []splitVertex
	dups    map[int][]int
	indices []int
	remap   []int
	count   int
}

func splitVertices(tris []triangle, q *quantRanges, hasLM bool) *vertexSplit {
	maxRef := -1
	for _, t := range tris {
		for _, c := range t {
			maxRef = max(maxRef, c.v)
		}
	}
	s := &vertexSplit{
		verts:   make([]splitVertex, maxRef+1, maxRef+1+len(tris)),
		dups:    make(map[int][]int),
		indices: make([]int, 0, len(tris)*3),
	}
	for _, t := range tris {
		for _, c := range t {
			uvc := q.encodeUV(c.uv)
			var lmc [2]uint16
			if hasLM {
				lmc = q.encodeLightmap(c.lm)
			}
			if !s.verts[c.v].set {
				s.verts[c.v] = splitVertex{orig: c.v, uv: c.uv, lm: c.lm, uvc: uvc, lmc: lmc, set: true}
				s.dups[c.v] = []int{c.v}
				s.indices = append(s.indices, c.v)
				continue
			}
			id := -1
			for _, d := range s.dups[c.v] {
				if s.verts[d].uvc == uvc && (!hasLM || s.verts[d].lmc == lmc) {
					id = d
					break
				}
			}
			if id < 0 {
				id = len(s.verts)
				s.verts = append(s.verts, splitVertex{orig: c.v, uv: c.uv, lm: c.lm, uvc: uvc, lmc: lmc, set: true})
				s.dups[c.v] = append(s.dups[c.v], id)
			}
			s.indices = append(s.indices, id)
		}
	}

	s.remap = make([]int, len(s.verts))
	for id := range s.verts {
		if !s.verts[id].set {
			s.remap[id] = -1
			continue
		}
		s.remap[id] = s.count
		s.count++
	}
	return s
}

// referenced reports whether position v is used by any face.
func (s *vertexSplit) referenced(v int) bool {
	return v < len(s.verts) && s.verts[v].set
}

// packWeights keeps the four strongest influences, heaviest first, ties by bone index.
func packWeights(infl []scene.Influence, bones map[string]int) (VertexWeights, error) {
	type boneWeight struct {
		bone   int
		weight float32
	}
	list := make([]boneWeight, 0, len(infl))
	for _, in := range infl {
		idx, ok := bones[in.Bone]
		if !ok {
			return VertexWeights{}, errors.Wrapf(ErrUnknownBone, "%q", in.Bone)
		}
		if idx > 127 {
			return VertexWeights{}, errors.Wrapf(ErrCountOverflow, "bone index %d", idx)
		}
		list = append(list, boneWeight{idx, in.Weight})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].weight != list[j].weight {
			return list[i].weight > list[j].weight
		}
		return list[i].bone < list[j].bone
	})
	var vw VertexWeights
	last := -1
	for i := 0; i < 4; i++ {
		if i < len(list) {
			last = list[i].bone
			vw.Weights[i] = list[i].weight
		}
		vw.Bones[i] = int8(last)
	}
	return vw, nil
}

// meshIDs are the ids drawn for a mesh that asks for generated ones.
type meshIDs struct {
	index, skeleton uint32
}

// drawIDs draws the generated ids of sm, index first. Meshes that keep their
// own ids, or have none, draw nothing.
func (c *EncodeContext) drawIDs(sm *scene.Mesh) meshIDs {
	var ids meshIDs
	if sm.ID == nil || !sm.ID.Generate {
		return ids
	}
	ids.index = c.nextID()
	if sm.Weights != nil {
		ids.skeleton = c.nextID()
	}
	return ids
}

// buildMesh turns a scene mesh into a mesh record ready to be written.
func buildMesh(ctx *EncodeContext, sm *scene.Mesh, ids meshIDs) (*Mesh, error) {
	hasLM := sm.HasLightmap()
	tris, err := triangulate(sm, hasLM)
	if err != nil {
		return nil, err
	}
	if sm.Normals != nil && len(sm.Normals) != len(sm.Positions) {
		return nil, errors.Wrapf(ErrIndexRange, "%d normals for %d positions", len(sm.Normals), len(sm.Positions))
	}
	skinned := sm.Weights != nil
	if skinned && len(sm.Weights) != len(sm.Positions) {
		return nil, errors.Wrapf(ErrIndexRange, "%d weight lists for %d positions", len(sm.Weights), len(sm.Positions))
	}

	m := &Mesh{
		Flags: MeshFlags{
			Weights:            skinned,
			FloorReflections:   sm.FloorReflections,
			NoOutline:          sm.NoOutline,
			Landscape:          sm.Landscape,
			Compressed:         true,
			NeckConnect:        sm.HasNeckConnect || len(sm.NeckConnect) > 0,
			AcceptsActorShadow: sm.AcceptsActorShadow,
			Lightmap:           hasLM,
			MinuteHand:         sm.MinuteHand,
			HourHand:           sm.HourHand,
			StaticBackdrop:     sm.StaticBackdrop,
		},
		BonesPerVertex: sm.BonesPerVertex,
		UnknownFlag:    sm.UnknownFlag,
	}
	if sm.Material != "" {
		idx, ok := ctx.materials[sm.Material]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownMaterial, "%q", sm.Material)
		}
		m.MaterialID = uint32(idx)
	}
	if sm.ID != nil {
		m.Flags.MeshID = true
		if sm.ID.Generate {
			m.IndexID = ids.index
			m.VertexID = -1
			m.SkeletonID = ids.skeleton
		} else {
			m.IndexID, m.VertexID, m.SkeletonID = sm.ID.Index, sm.ID.Vertex, sm.ID.Skeleton
		}
	}

	if sm.Ranges != nil {
		m.Ranges = *sm.Ranges
	} else {
		m.Ranges = computeRanges(ctx.bounds, tris, hasLM)
	}
	q := newQuantRanges(m.Ranges)

	split := splitVertices(tris, &q, hasLM)
	if split.count > maxVertices {
		return nil, errors.Wrapf(ErrCountOverflow, "%d vertices after splitting", split.count)
	}

	world := sm.WorldPositions()
	m.Positions = make([][3]float64, split.count)
	m.Normals = make([][3]float64, split.count)
	m.UVs = make([][2]float64, split.count)
	if hasLM {
		m.LightmapUVs = make([][2]float64, split.count)
	}
	if skinned {
		m.Weights = make([]VertexWeights, split.count)
	}
	for id, sv := range split.verts {
		if !sv.set {
			continue
		}
		d := split.remap[id]
		m.Positions[d] = world[sv.orig]
		if sm.Normals != nil {
			m.Normals[d] = sm.Normals[sv.orig]
		}
		m.UVs[d] = sv.uv
		if hasLM {
			m.LightmapUVs[d] = sv.lm
		}
		if skinned {
			vw, err := packWeights(sm.Weights[sv.orig], ctx.bones)
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d", sv.orig)
			}
			m.Weights[d] = vw
		}
	}

	m.Indices = make([]uint16, len(split.indices))
	for i, id := range split.indices {
		m.Indices[i] = uint16(split.remap[id])
	}

	if m.Flags.NeckConnect {
		neck, err := buildNeck(ctx, sm, split)
		if err != nil {
			return nil, err
		}
		m.Neck = neck
	}
	return m, nil
}

// buildNeck pairs every copy of a neck vertex with a neck table point, ordered by vertex.
func buildNeck(ctx *EncodeContext, sm *scene.Mesh, split *vertexSplit) ([]NeckConnect, error) {
	points := make(map[int]uint32)
	snapped := false
	for _, n := range sm.NeckConnect {
		if n < 0 || n >= len(sm.Positions) {
			return nil, errors.Wrapf(ErrIndexRange, "neck vertex %d of %d", n, len(sm.Positions))
		}
		if !split.referenced(n) {
			continue
		}
		point, ok := sm.NeckPoints[n]
		if ok {
			if point < 0 || point >= len(ctx.neck) {
				return nil, errors.Wrapf(ErrIndexRange, "neck point %d", point)
			}
		} else {
			p := sm.Positions[n]
			point = ctx.neck.Nearest([3]float32{float32(p[0]), float32(p[1]), float32(p[2])})
			snapped = true
		}
		for _, d := range split.dups[n] {
			points[split.remap[d]] = uint32(point)
		}
	}
	if snapped && !ctx.neckKnown {
		ctx.neckWarn.Do(func() {
			ctx.warnf("mesh type %q has no neck points, using %s", ctx.meshType, TypeMaleCostume)
		})
	}
	neck := make([]NeckConnect, 0, len(points))
	for v, p := range points {
		neck = append(neck, NeckConnect{Vertex: uint32(v), Point: p, Position: ctx.neck[p]})
	}
	sort.Slice(neck, func(i, j int) bool { return neck[i].Vertex < neck[j].Vertex })
	return neck, nil
}
