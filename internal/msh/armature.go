package msh

import (
	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

// ToStreamBasis reorders a host bone matrix into the row order stored in the stream:
// host rows 1, 2, 0, then the translation.
func ToStreamBasis(m scene.Matrix) scene.Matrix {
	return scene.Matrix{m[1], m[2], m[0], m[3]}
}

// FromStreamBasis inverts ToStreamBasis.
func FromStreamBasis(m scene.Matrix) scene.Matrix {
	return scene.Matrix{m[2], m[0], m[1], m[3]}
}

// Bone is a decoded bone. Matrix is in host row order.
type Bone struct {
	Name   string
	Parent int32
	Matrix scene.Matrix
}

// Skeleton is the decoded armature section.
type Skeleton struct {
	RigID uint32
	Bones []Bone
}

// Type returns the rig type name, or "" when the rig id is not in the table.
func (s *Skeleton) Type() string {
	name, _ := RigType(s.RigID)
	return name
}

func readSkeleton(r *reader) (*Skeleton, error) {
	s := &Skeleton{RigID: r.readU32()}
	count := r.readU32()
	if !r.fits(count, nameSize+4+48) {
		r.truncate()
		return s, nil
	}
	s.Bones = make([]Bone, count)
	for i := range s.Bones {
		b := &s.Bones[i]
		b.Name = r.readName()
		b.Parent = r.readI32()
		b.Matrix = FromStreamBasis(r.readMatrix())
		if r.err != nil {
			return s, nil
		}
		if b.Parent < -1 || b.Parent >= int32(i) {
			return s, errors.Wrapf(ErrIndexRange, "bone %q parent %d", b.Name, b.Parent)
		}
	}
	return s, nil
}

// skeletonFromScene resolves parent names to indices; a parent must precede its child.
// A rig type missing from the rig table gets a random rig id.
func skeletonFromScene(ctx *EncodeContext, ss *scene.Skeleton) (*Skeleton, error) {
	s := &Skeleton{RigID: ss.RigID}
	if s.RigID == 0 && ss.Type != "" {
		id, ok := RigID(ss.Type)
		if !ok {
			id = ctx.nextID()
			ctx.warnf("skeleton type %q not recognized, using random rig id %d", ss.Type, id)
		}
		s.RigID = id
	}
	index := make(map[string]int, len(ss.Bones))
	for i, b := range ss.Bones {
		parent := int32(-1)
		if b.Parent != "" {
			p, ok := index[b.Parent]
			if !ok {
				return nil, contractf(ErrUnknownBone, "parent %q of bone %q", b.Parent, b.Name)
			}
			parent = int32(p)
		}
		index[b.Name] = i
		s.Bones = append(s.Bones, Bone{Name: b.Name, Parent: parent, Matrix: b.Matrix})
	}
	return s, nil
}

func (s *Skeleton) write(w *writer) error {
	w.writeU32(s.RigID)
	w.writeU32(uint32(len(s.Bones)))
	for _, b := range s.Bones {
		if err := w.writeName(b.Name); err != nil {
			return contractf(err, "bone")
		}
		w.writeI32(b.Parent)
		w.writeMatrix(ToStreamBasis(b.Matrix))
	}
	return nil
}

func readAnchor(r *reader) scene.Anchor {
	return scene.Anchor{Name: r.readName(), Matrix: r.readMatrix()}
}

func writeAnchor(w *writer, a *scene.Anchor) error {
	if err := w.writeName(a.Name); err != nil {
		return contractf(err, "anchor")
	}
	w.writeMatrix(a.Matrix)
	return nil
}

func readShape(r *reader) scene.Shape {
	return scene.Shape{Reserved: r.readU32(), Matrix: r.readMatrix(), Dimensions: r.readVec3()}
}

func writeShape(w *writer, s *scene.Shape) {
	w.writeU32(s.Reserved)
	w.writeMatrix(s.Matrix)
	w.writeVec3(s.Dimensions)
}
