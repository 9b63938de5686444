package msh

import (
	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

// Mesh flag bits, first byte.
const (
	meshWeights            = 1 << 0
	meshFloorReflections   = 1 << 1
	meshNoOutline          = 1 << 2
	meshLandscape          = 1 << 3
	meshID                 = 1 << 4
	meshCompressed         = 1 << 5
	meshNeckConnect        = 1 << 6
	meshAcceptsActorShadow = 1 << 7
)

// Mesh flag bits, second byte.
const (
	meshLightmap       = 1 << 0
	meshMinuteHand     = 1 << 1
	meshHourHand       = 1 << 2
	meshStaticBackdrop = 1 << 3
)

// MeshFlags are the two flag bytes of a mesh record.
type MeshFlags struct {
	Weights            bool
	FloorReflections   bool
	NoOutline          bool
	Landscape          bool
	MeshID             bool
	Compressed         bool
	NeckConnect        bool
	AcceptsActorShadow bool

	Lightmap       bool
	MinuteHand     bool
	HourHand       bool
	StaticBackdrop bool
}

func (f MeshFlags) bytes() (uint8, uint8) {
	b1 := bit(f.Weights, meshWeights) | bit(f.FloorReflections, meshFloorReflections) |
		bit(f.NoOutline, meshNoOutline) | bit(f.Landscape, meshLandscape) | bit(f.MeshID, meshID) |
		bit(f.Compressed, meshCompressed) | bit(f.NeckConnect, meshNeckConnect) |
		bit(f.AcceptsActorShadow, meshAcceptsActorShadow)
	b2 := bit(f.Lightmap, meshLightmap) | bit(f.MinuteHand, meshMinuteHand) |
		bit(f.HourHand, meshHourHand) | bit(f.StaticBackdrop, meshStaticBackdrop)
	return b1, b2
}

func meshFlagsFrom(b1, b2 uint8) MeshFlags {
	return MeshFlags{
		Weights:            b1&meshWeights != 0,
		FloorReflections:   b1&meshFloorReflections != 0,
		NoOutline:          b1&meshNoOutline != 0,
		Landscape:          b1&meshLandscape != 0,
		MeshID:             b1&meshID != 0,
		Compressed:         b1&meshCompressed != 0,
		NeckConnect:        b1&meshNeckConnect != 0,
		AcceptsActorShadow: b1&meshAcceptsActorShadow != 0,
		Lightmap:           b2&meshLightmap != 0,
		MinuteHand:         b2&meshMinuteHand != 0,
		HourHand:           b2&meshHourHand != 0,
		StaticBackdrop:     b2&meshStaticBackdrop != 0,
	}
}

// VertexWeights are the four packed bone influences of one vertex.
// Unused slots carry weight 0 and repeat the last valid bone; -1 means no bone.
type VertexWeights struct {
	Weights [4]float32
	Bones   [4]int8
}

// BoneInfluence is one unpacked bone weight.
type BoneInfluence struct {
	Bone   int
	Weight float32
}

// Influences drops padding slots.
func (v VertexWeights) Influences() []BoneInfluence {
	var out []BoneInfluence
	for i := range v.Weights {
		if v.Bones[i] < 0 || v.Weights[i] == 0 {
			continue
		}
		out = append(out, BoneInfluence{Bone: int(v.Bones[i]), Weight: v.Weights[i]})
	}
	return out
}

// NeckConnect pairs a vertex with a point of the neck table.
type NeckConnect struct {
	Vertex   uint32
	Point    uint32
	Position [3]float32
}

// Mesh is a decoded mesh record with its attributes dequantized.
type Mesh struct {
	MaterialID     uint32
	Flags          MeshFlags
	BonesPerVertex uint8
	UnknownFlag    uint8

	IndexID    uint32
	VertexID   int32
	SkeletonID uint32

	Ranges scene.Ranges

	Indices     []uint16
	Positions   [][3]float64
	Normals     [][3]float64
	UVs         [][2]float64
	LightmapUVs [][2]float64
	Weights     []VertexWeights
	Neck        []NeckConnect
}

// FaceCount is the number of triangles.
func (m *Mesh) FaceCount() int { return len(m.Indices) / 3 }

func (m *Mesh) write(w *writer) {
	w.writeU32(m.MaterialID)
	w.writeU32(uint32(m.FaceCount()))
	w.writeU32(uint32(len(m.Positions)))
	b1, b2 := m.Flags.bytes()
	w.writeU8(b1)
	w.writeU8(b2)
	w.writeU8(m.BonesPerVertex)
	w.writeU8(m.UnknownFlag)
	if m.Flags.MeshID {
		w.writeU32(m.IndexID)
		w.writeI32(m.VertexID)
		w.writeU32(m.SkeletonID)
	}

	rg := m.Ranges
	w.writeVec3(rg.PosMin)
	w.writeVec3(rg.PosMax)
	for _, v := range [...]float32{rg.UVMin[0], rg.UVMin[1], rg.UVMax[0], rg.UVMax[1],
		rg.LightmapMin[0], rg.LightmapMin[1], rg.LightmapMax[0], rg.LightmapMax[1]} {
		w.writeF32(v)
	}

	neckOff := -1
	if m.Flags.NeckConnect {
		neckOff = w.reserveU32()
	}

	for _, idx := range m.Indices {
		w.writeU16(idx)
	}
	if m.FaceCount()%2 == 1 {
		w.pad(2)
	}

	q := newQuantRanges(m.Ranges)
	for i, p := range m.Positions {
		for _, c := range q.encodePos(p) {
			w.writeU16(c)
		}
		var n [3]float64
		if i < len(m.Normals) {
			n = m.Normals[i]
		}
		for _, c := range encodeNormal(n) {
			w.writeU16(c)
		}
		var uv [2]float64
		if i < len(m.UVs) {
			uv = m.UVs[i]
		}
		for _, c := range q.encodeUV(uv) {
			w.writeU16(c)
		}
	}
	if m.Flags.Lightmap {
		for _, uv := range m.LightmapUVs {
			for _, c := range q.encodeLightmap(uv) {
				w.writeU16(c)
			}
		}
	}
	if m.Flags.Weights {
		for _, vw := range m.Weights {
			for _, wt := range vw.Weights {
				w.writeF32(wt)
			}
			for _, b := range vw.Bones {
				w.writeI8(b)
			}
		}
	}
	if neckOff >= 0 {
		for _, nc := range m.Neck {
			w.writeU32(nc.Vertex)
			w.writeU32(nc.Point)
		}
		w.patchU32(neckOff, uint32(len(m.Neck)))
	}
}

func readMesh(r *reader, ctx *DecodeContext) (Mesh, error) {
	var m Mesh
	m.MaterialID = r.readU32()
	faceCount := r.readU32()
	vertCount := r.readU32()
	b1 := r.readU8()
	b2 := r.readU8()
	m.Flags = meshFlagsFrom(b1, b2)
	m.BonesPerVertex = r.readU8()
	m.UnknownFlag = r.readU8()
	if r.err != nil {
		return m, nil
	}
	if !m.Flags.Compressed {
		return m, ErrUncompressed
	}
	if m.Flags.MeshID {
		m.IndexID = r.readU32()
		m.VertexID = r.readI32()
		m.SkeletonID = r.readU32()
	}

	rg := &m.Ranges
	rg.PosMin = r.readVec3()
	rg.PosMax = r.readVec3()
	for _, p := range [...]*float32{&rg.UVMin[0], &rg.UVMin[1], &rg.UVMax[0], &rg.UVMax[1],
		&rg.LightmapMin[0], &rg.LightmapMin[1], &rg.LightmapMax[0], &rg.LightmapMax[1]} {
		*p = r.readF32()
	}

	var neckCount uint32
	if m.Flags.NeckConnect {
		neckCount = r.readU32()
	}

	if !r.fits(faceCount, 6) {
		r.truncate()
		return m, nil
	}
	m.Indices = make([]uint16, faceCount*3)
	for i := range m.Indices {
		m.Indices[i] = r.readU16()
		if uint32(m.Indices[i]) >= vertCount {
			return m, errors.Wrapf(ErrIndexRange, "index %d of %d vertices", m.Indices[i], vertCount)
		}
	}
	if faceCount%2 == 1 {
		r.skip(2)
	}

	if !r.fits(vertCount, 16) {
		r.truncate()
		return m, nil
	}
	q := newQuantRanges(m.Ranges)
	m.Positions = make([][3]float64, vertCount)
	m.Normals = make([][3]float64, vertCount)
	m.UVs = make([][2]float64, vertCount)
	for i := range m.Positions {
		m.Positions[i] = q.decodePos([3]uint16{r.readU16(), r.readU16(), r.readU16()})
		m.Normals[i] = decodeNormal([3]uint16{r.readU16(), r.readU16(), r.readU16()})
		m.UVs[i] = q.decodeUV([2]uint16{r.readU16(), r.readU16()})
	}
	if m.Flags.Lightmap {
		if !r.fits(vertCount, 4) {
			r.truncate()
			return m, nil
		}
		m.LightmapUVs = make([][2]float64, vertCount)
		for i := range m.LightmapUVs {
			m.LightmapUVs[i] = q.decodeLightmap([2]uint16{r.readU16(), r.readU16()})
		}
	}
	if m.Flags.Weights {
		if !r.fits(vertCount, 20) {
			r.truncate()
			return m, nil
		}
		m.Weights = make([]VertexWeights, vertCount)
		for i := range m.Weights {
			vw := &m.Weights[i]
			for j := range vw.Weights {
				vw.Weights[j] = r.readF32()
			}
			for j := range vw.Bones {
				vw.Bones[j] = r.readI8()
			}
		}
	}
	if m.Flags.NeckConnect {
		if !r.fits(neckCount, 8) {
			r.truncate()
			return m, nil
		}
		var table *NeckTable
		if neckCount > 0 {
			table = ctx.neckTable()
		}
		m.Neck = make([]NeckConnect, neckCount)
		for i := range m.Neck {
			nc := &m.Neck[i]
			nc.Vertex = r.readU32()
			nc.Point = r.readU32()
			if r.err != nil {
				return m, nil
			}
			if nc.Vertex >= vertCount {
				return m, errors.Wrapf(ErrIndexRange, "neck vertex %d of %d", nc.Vertex, vertCount)
			}
			if nc.Point >= uint32(len(table)) {
				return m, errors.Wrapf(ErrIndexRange, "neck point %d of %d", nc.Point, len(table))
			}
			nc.Position = table[nc.Point]
		}
	}
	return m, nil
}
