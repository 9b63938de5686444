package msh

import (
	"math"

	"movies-msh/internal/scene"
)

const codeMax = 65535

// Range maps floats in [Min, Max] onto 16-bit codes.
type Range struct {
	Min, Max float64
}

var normalRange = Range{Min: -1, Max: 1}

// Encode rounds v to the nearest code, clamping to the code range. A degenerate range encodes to 0.
func (q Range) Encode(v float64) uint16 {
	if q.Max == q.Min {
		return 0
	}
	c := math.Round((v - q.Min) * codeMax / (q.Max - q.Min))
	switch {
	case c <= 0 || math.IsNaN(c):
		return 0
	case c >= codeMax:
		return codeMax
	}
	return uint16(c)
}

// Decode maps a code back into the range.
func (q Range) Decode(c uint16) float64 {
	return q.Min + float64(c)*(q.Max-q.Min)/codeMax
}

// Step is the distance between two neighbouring codes.
func (q Range) Step() float64 {
	return math.Abs(q.Max-q.Min) / codeMax
}

// quantRanges are the ranges a mesh's attributes are quantized against,
// derived from the float32 values actually stored in the mesh record.
type quantRanges struct {
	pos    [3]Range
	uv     [2]Range
	lmap   [2]Range
	stored scene.Ranges
}

func newQuantRanges(s scene.Ranges) quantRanges {
	q := quantRanges{stored: s}
	for i := 0; i < 3; i++ {
		q.pos[i] = Range{float64(s.PosMin[i]), float64(s.PosMax[i])}
	}
	q.uv[0] = Range{float64(s.UVMin[0]), float64(s.UVMax[0])}
	q.uv[1] = Range{1 - float64(s.UVMin[1]), 1 - float64(s.UVMax[1])}
	q.lmap[0] = Range{float64(s.LightmapMin[0]), float64(s.LightmapMax[0])}
	q.lmap[1] = Range{1 - float64(s.LightmapMin[1]), 1 - float64(s.LightmapMax[1])}
	return q
}

func (q *quantRanges) encodePos(p [3]float64) [3]uint16 {
	return [3]uint16{q.pos[0].Encode(p[0]), q.pos[1].Encode(p[1]), q.pos[2].Encode(p[2])}
}

func (q *quantRanges) decodePos(c [3]uint16) [3]float64 {
	return [3]float64{q.pos[0].Decode(c[0]), q.pos[1].Decode(c[1]), q.pos[2].Decode(c[2])}
}

func (q *quantRanges) encodeUV(uv [2]float64) [2]uint16 {
	return [2]uint16{q.uv[0].Encode(uv[0]), q.uv[1].Encode(uv[1])}
}

func (q *quantRanges) decodeUV(c [2]uint16) [2]float64 {
	return [2]float64{q.uv[0].Decode(c[0]), q.uv[1].Decode(c[1])}
}

func (q *quantRanges) encodeLightmap(uv [2]float64) [2]uint16 {
	return [2]uint16{q.lmap[0].Encode(uv[0]), q.lmap[1].Encode(uv[1])}
}

func (q *quantRanges) decodeLightmap(c [2]uint16) [2]float64 {
	return [2]float64{q.lmap[0].Decode(c[0]), q.lmap[1].Decode(c[1])}
}

func encodeNormal(n [3]float64) [3]uint16 {
	return [3]uint16{normalRange.Encode(n[0]), normalRange.Encode(n[1]), normalRange.Encode(n[2])}
}

func decodeNormal(c [3]uint16) [3]float64 {
	return [3]float64{normalRange.Decode(c[0]), normalRange.Decode(c[1]), normalRange.Decode(c[2])}
}

// storedRanges builds the stored range record for a mesh. Positions use the
// scene box, texture coordinates the min/max over all face corners.
func storedRanges(box scene.Box, uvMin, uvMax, lmMin, lmMax [2]float64) scene.Ranges {
	return scene.Ranges{
		PosMin:      box.Min,
		PosMax:      box.Max,
		UVMin:       [2]float32{float32(uvMin[0]), float32(1 - uvMin[1])},
		UVMax:       [2]float32{float32(uvMax[0]), float32(1 - uvMax[1])},
		LightmapMin: [2]float32{float32(lmMin[0]), float32(1 - lmMin[1])},
		LightmapMax: [2]float32{float32(lmMax[0]), float32(1 - lmMax[1])},
	}
}
