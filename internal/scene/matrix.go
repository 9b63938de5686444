package scene

import "github.com/go-gl/mathgl/mgl32"

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0}}
}

// Mat4 expands m into a column-major 4×4 matrix acting on column vectors.
func (m Matrix) Mat4() mgl32.Mat4 {
	return mgl32.Mat4{
		m[0][0], m[0][1], m[0][2], 0,
		m[1][0], m[1][1], m[1][2], 0,
		m[2][0], m[2][1], m[2][2], 0,
		m[3][0], m[3][1], m[3][2], 1,
	}
}

// FromMat4 drops the projective row of a 4×4 affine matrix.
func FromMat4(a mgl32.Mat4) Matrix {
	return Matrix{
		{a[0], a[1], a[2]},
		{a[4], a[5], a[6]},
		{a[8], a[9], a[10]},
		{a[12], a[13], a[14]},
	}
}

// Mul returns the transform applying m first, then n.
func (m Matrix) Mul(n Matrix) Matrix {
	return FromMat4(n.Mat4().Mul4(m.Mat4()))
}

// Apply transforms point p. Arithmetic runs in float64 so baked positions keep their precision.
func (m Matrix) Apply(p [3]float64) [3]float64 {
	var out [3]float64
	for c := 0; c < 3; c++ {
		out[c] = p[0]*float64(m[0][c]) + p[1]*float64(m[1][c]) + p[2]*float64(m[2][c]) + float64(m[3][c])
	}
	return out
}

// Translation returns the translation row.
func (m Matrix) Translation() [3]float32 {
	return m[3]
}

// Extend grows b to contain p.
func (b *Box) Extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// ComputeBounds returns the box around all world-space content, seeded with the origin.
func (s *Scene) ComputeBounds() Box {
	var b Box
	for _, slot := range s.Controls.Slots() {
		if cm := *slot.Mesh; cm != nil {
			for _, p := range cm.Positions {
				b.Extend(p)
			}
		}
	}
	for _, r := range s.Rooms {
		for _, p := range r.Mesh.Positions {
			b.Extend(p)
		}
	}
	for gi := range s.Groups {
		b.Extend(s.Groups[gi].Pivot.Translation())
		for mi := range s.Groups[gi].Meshes {
			m := &s.Groups[gi].Meshes[mi]
			for _, p := range m.WorldPositions() {
				b.Extend([3]float32{float32(p[0]), float32(p[1]), float32(p[2])})
			}
		}
	}
	for _, a := range s.Anchors {
		b.Extend(a.Matrix.Translation())
	}
	for _, sh := range s.Shapes {
		b.Extend(sh.Matrix.Translation())
	}
	return b
}

// WorldPositions returns the mesh positions with Transform applied.
func (m *Mesh) WorldPositions() [][3]float64 {
	if m.Transform == nil {
		return m.Positions
	}
	out := make([][3]float64, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = m.Transform.Apply(p)
	}
	return out
}
