package msh

import (
	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

const materialSize = 24

// Primary material flag bits.
const (
	matDoubleSided    = 1 << 0
	matFloorShadowTex = 1 << 1
	matAlphaSeparate  = 1 << 2
)

// Secondary material flag bits.
const (
	matInvisible     = 1 << 0
	matNotZWrite     = 1 << 1
	matHasUV         = 1 << 2
	matSelfLit       = 1 << 3
	matNoFloorShadow = 1 << 4
	matNoDelayDraw   = 1 << 5
	matTriSort       = 1 << 6
	matAdditive      = 1 << 7
)

// Material is the 24-byte material record.
type Material struct {
	Maps [4]int8 // image indices, -1 = none

	DoubleSided    bool
	FloorShadowTex bool
	AlphaSeparate  bool

	WrapU          bool
	WrapV          bool
	UseAlpha       bool
	AlphaTest      bool
	Glass          bool
	Water          bool
	StillWater     bool
	AlphaPerVertex bool
	AlphaEnvMap    uint8

	Invisible     bool
	NotZWrite     bool
	HasUV         bool
	SelfLit       bool
	NoFloorShadow bool
	NoDelayDraw   bool
	TriSort       bool
	Additive      bool

	Color [4]uint8 // B, G, R, A

	ScrollU int8
	ScrollV int8
	RotUV   int8
}

func bit(b bool, mask uint8) uint8 {
	if b {
		return mask
	}
	return 0
}

func (m *Material) write(w *writer) {
	for _, idx := range m.Maps {
		w.writeI8(idx)
	}
	w.writeU8(bit(m.DoubleSided, matDoubleSided) | bit(m.FloorShadowTex, matFloorShadowTex) | bit(m.AlphaSeparate, matAlphaSeparate))
	for _, b := range []bool{m.WrapU, m.WrapV, m.UseAlpha, m.AlphaTest, m.Glass, m.Water, m.StillWater, m.AlphaPerVertex} {
		w.writeBool(b)
	}
	w.writeU8(m.AlphaEnvMap)
	w.writeU8(bit(m.Invisible, matInvisible) | bit(m.NotZWrite, matNotZWrite) | bit(m.HasUV, matHasUV) |
		bit(m.SelfLit, matSelfLit) | bit(m.NoFloorShadow, matNoFloorShadow) | bit(m.NoDelayDraw, matNoDelayDraw) |
		bit(m.TriSort, matTriSort) | bit(m.Additive, matAdditive))
	w.pad(1)
	for _, c := range m.Color {
		w.writeU8(c)
	}
	w.writeI8(m.ScrollU)
	w.writeI8(m.ScrollV)
	w.writeI8(m.RotUV)
	w.pad(1)
}

func readMaterial(r *reader) Material {
	var m Material
	for i := range m.Maps {
		m.Maps[i] = r.readI8()
	}
	f0 := r.readU8()
	m.DoubleSided = f0&matDoubleSided != 0
	m.FloorShadowTex = f0&matFloorShadowTex != 0
	m.AlphaSeparate = f0&matAlphaSeparate != 0
	for _, p := range []*bool{&m.WrapU, &m.WrapV, &m.UseAlpha, &m.AlphaTest, &m.Glass, &m.Water, &m.StillWater, &m.AlphaPerVertex} {
		*p = r.readBool()
	}
	m.AlphaEnvMap = r.readU8()
	f1 := r.readU8()
	m.Invisible = f1&matInvisible != 0
	m.NotZWrite = f1&matNotZWrite != 0
	m.HasUV = f1&matHasUV != 0
	m.SelfLit = f1&matSelfLit != 0
	m.NoFloorShadow = f1&matNoFloorShadow != 0
	m.NoDelayDraw = f1&matNoDelayDraw != 0
	m.TriSort = f1&matTriSort != 0
	m.Additive = f1&matAdditive != 0
	r.skip(1)
	for i := range m.Color {
		m.Color[i] = r.readU8()
	}
	m.ScrollU = r.readI8()
	m.ScrollV = r.readI8()
	m.RotUV = r.readI8()
	r.skip(1)
	return m
}

// materialFromScene resolves texture names against the image table.
func materialFromScene(sm *scene.Material, images map[string]int) (Material, error) {
	m := Material{
		DoubleSided:    sm.DoubleSided,
		FloorShadowTex: sm.FloorShadowTex,
		AlphaSeparate:  sm.AlphaSeparate,
		WrapU:          sm.WrapU,
		WrapV:          sm.WrapV,
		UseAlpha:       sm.UseAlpha,
		AlphaTest:      sm.AlphaTest,
		Glass:          sm.Glass,
		Water:          sm.Water,
		StillWater:     sm.StillWater,
		AlphaPerVertex: sm.AlphaPerVertex,
		AlphaEnvMap:    sm.AlphaEnvMap,
		Invisible:      sm.Invisible,
		NotZWrite:      sm.NotZWrite,
		HasUV:          true,
		SelfLit:        sm.SelfLit,
		NoFloorShadow:  sm.NoFloorShadow,
		NoDelayDraw:    sm.NoDelayDraw,
		TriSort:        sm.TriSort,
		Additive:       sm.Additive,
		Color:          [4]uint8{sm.Color.B, sm.Color.G, sm.Color.R, sm.Color.A},
		ScrollU:        sm.ScrollU,
		ScrollV:        sm.ScrollV,
		RotUV:          sm.RotUV,
	}
	for slot, name := range sm.Textures {
		m.Maps[slot] = -1
		if name == "" {
			continue
		}
		idx, ok := images[name]
		if !ok {
			return m, errors.Wrapf(ErrUnknownImage, "slot %d %q", slot, name)
		}
		if idx > 127 {
			return m, errors.Wrapf(ErrCountOverflow, "image index %d", idx)
		}
		m.Maps[slot] = int8(idx)
	}
	return m, nil
}

// toScene resolves image indices back to names.
func (m *Material) toScene(name string, images []string) (scene.Material, error) {
	sm := scene.Material{
		Name:           name,
		Color:          scene.Color{R: m.Color[2], G: m.Color[1], B: m.Color[0], A: m.Color[3]},
		DoubleSided:    m.DoubleSided,
		FloorShadowTex: m.FloorShadowTex,
		AlphaSeparate:  m.AlphaSeparate,
		WrapU:          m.WrapU,
		WrapV:          m.WrapV,
		UseAlpha:       m.UseAlpha,
		AlphaTest:      m.AlphaTest,
		Glass:          m.Glass,
		Water:          m.Water,
		StillWater:     m.StillWater,
		AlphaPerVertex: m.AlphaPerVertex,
		AlphaEnvMap:    m.AlphaEnvMap,
		Invisible:      m.Invisible,
		NotZWrite:      m.NotZWrite,
		SelfLit:        m.SelfLit,
		NoFloorShadow:  m.NoFloorShadow,
		NoDelayDraw:    m.NoDelayDraw,
		TriSort:        m.TriSort,
		Additive:       m.Additive,
		ScrollU:        m.ScrollU,
		ScrollV:        m.ScrollV,
		RotUV:          m.RotUV,
	}
	for slot, idx := range m.Maps {
		if idx < 0 {
			continue
		}
		if int(idx) >= len(images) {
			return sm, errors.Wrapf(ErrIndexRange, "material %s slot %d image %d of %d", name, slot, idx, len(images))
		}
		sm.Textures[slot] = images[idx]
	}
	return sm, nil
}
