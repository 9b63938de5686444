package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"

	"movies-msh/internal/msh"
)

// Pose holds the rest pose of an armature in the forms a scene graph needs.
// World matrices are armature space, Local matrices are relative to the parent bone.
type Pose struct {
	World       []mgl32.Mat4
	Local       []mgl32.Mat4
	InverseBind []mgl32.Mat4
	Children    [][]int
	Roots       []int
}

// Build computes the rest pose from armature-space bone matrices.
// Parents always precede their children, so a single forward pass suffices.
func Build(bones []msh.Bone) Pose {
	p := Pose{
		World:       make([]mgl32.Mat4, len(bones)),
		Local:       make([]mgl32.Mat4, len(bones)),
		InverseBind: make([]mgl32.Mat4, len(bones)),
		Children:    make([][]int, len(bones)),
	}
	for i, bone := range bones {
		world := bone.Matrix.Mat4()
		p.World[i] = world
		p.InverseBind[i] = world.Inv()

		// Chain with parent
		if bone.Parent >= 0 && int(bone.Parent) < i {
			p.Local[i] = p.InverseBind[bone.Parent].Mul4(world)
			p.Children[bone.Parent] = append(p.Children[bone.Parent], i)
		} else {
			p.Local[i] = world
			p.Roots = append(p.Roots, i)
		}
	}
	return p
}

// Decompose splits a local matrix into translation, rotation and scale.
func Decompose(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = m.Col(3).Vec3()
	s = mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	rot := mgl32.Ident3()
	for c := 0; c < 3; c++ {
		if s[c] == 0 {
			continue
		}
		col := m.Col(c).Vec3().Mul(1 / s[c])
		rot.SetCol(c, col)
	}
	r = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
	return t, r, s
}
