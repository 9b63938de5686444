package msh

import (
	"bytes"
	"io"
	"regexp"
	"sync"

	"github.com/pkg/errors"

	"movies-msh/internal/scene"
)

// Group name conventions. Names not starting like "07" or "07.2" mark the document
// as having named groups; names like "x_sa_" or "_ca_" mark static animation.
var (
	unnamedGroup    = regexp.MustCompile(`^(\d{2})(\.\d+)?`)
	staticAnimGroup = regexp.MustCompile(`^.?_[sc]a_`)
)

// Group is a decoded group record.
type Group struct {
	Reserved       uint8
	TransAnim      bool
	CarBody        bool
	Land           bool
	HideReflection bool
	HasHidden      bool
	Pivot          scene.Matrix
	HiddenOn       uint16
	HiddenOff      uint16
	Meshes         []Mesh
}

// Group flag bits.
const (
	grpTransAnim      = 1 << 0
	grpCarBody        = 1 << 1
	grpLand           = 1 << 2
	grpHideReflection = 1 << 3
	grpHidden         = 1 << 4
)

// Document is a decoded mesh file.
type Document struct {
	Header     Header
	Images     []string
	Materials  []Material
	Controls   scene.ControlMeshes
	Rooms      []scene.Room
	Groups     []Group
	Skeleton   *Skeleton
	GroupNames []string
	Anchors    []scene.Anchor
	HullSize   uint32
	Shapes     []scene.Shape

	// MeshType is the tag the document was decoded with.
	MeshType string
	Warnings Warnings
}

type section int

const (
	sectionHeader section = iota
	sectionCounts
	sectionImages
	sectionMaterials
	sectionControls
	sectionRooms
	sectionGroups
	sectionArmature
	sectionGroupNames
	sectionAnchors
	sectionConvexHull
	sectionShapes
	sectionEnd
)

var sectionNames = [...]string{
	sectionHeader:     "header",
	sectionCounts:     "header counts",
	sectionImages:     "images",
	sectionMaterials:  "materials",
	sectionControls:   "control meshes",
	sectionRooms:      "rooms",
	sectionGroups:     "groups",
	sectionArmature:   "armature",
	sectionGroupNames: "group names",
	sectionAnchors:    "anchors",
	sectionConvexHull: "convex hull",
	sectionShapes:     "shapes",
	sectionEnd:        "end",
}

func (s section) String() string { return sectionNames[s] }

type decoder struct {
	r   *reader
	ctx *DecodeContext
	doc *Document
}

// Decode reads a complete mesh file from r.
func Decode(r io.Reader, opts DecodeOptions) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "msh: read")
	}
	return DecodeBytes(data, opts)
}

// DecodeBytes decodes a mesh file held in memory.
func DecodeBytes(data []byte, opts DecodeOptions) (*Document, error) {
	ctx := newDecodeContext(opts)
	d := &decoder{
		r:   &reader{data: data, names: ctx.names},
		ctx: ctx,
		doc: &Document{MeshType: opts.MeshType},
	}
	steps := [...]func() error{
		sectionHeader:     d.header,
		sectionCounts:     d.counts,
		sectionImages:     d.images,
		sectionMaterials:  d.materials,
		sectionControls:   d.controls,
		sectionRooms:      d.rooms,
		sectionGroups:     d.groups,
		sectionArmature:   d.armature,
		sectionGroupNames: d.groupNames,
		sectionAnchors:    d.anchors,
		sectionConvexHull: d.convexHull,
		sectionShapes:     d.shapes,
	}
	for st, step := range steps {
		err := step()
		if err == nil && d.r.err != nil {
			err = d.r.err
		}
		if err != nil {
			return nil, &FormatError{Section: section(st).String(), Offset: d.r.off, Err: err}
		}
	}
	if rest := len(data) - d.r.off; rest > 0 {
		ctx.warnf("%d trailing bytes after the last section", rest)
	}
	d.doc.Warnings = ctx.warnings
	return d.doc, nil
}

func (d *decoder) header() error {
	h := &d.doc.Header
	h.Version = d.r.readU32()
	if d.r.err != nil {
		return nil
	}
	if h.Version != Version {
		return errors.Wrapf(ErrVersion, "version %d", h.Version)
	}
	h.readFixed(d.r)
	return nil
}

func (d *decoder) counts() error {
	d.doc.Header.readCounts(d.r)
	return nil
}

func (d *decoder) images() error {
	n := d.doc.Header.ImageCount
	if !d.r.fits(n, nameSize) {
		d.r.truncate()
		return nil
	}
	d.doc.Images = make([]string, n)
	for i := range d.doc.Images {
		d.doc.Images[i] = d.r.readName()
	}
	return nil
}

func (d *decoder) materials() error {
	n := d.doc.Header.MaterialCount
	if !d.r.fits(n, materialSize) {
		d.r.truncate()
		return nil
	}
	d.doc.Materials = make([]Material, n)
	for i := range d.doc.Materials {
		d.doc.Materials[i] = readMaterial(d.r)
	}
	return nil
}

func (d *decoder) controls() error {
	present := d.doc.Header.controlPresent()
	for i, slot := range d.doc.Controls.Slots() {
		if !present[i] {
			continue
		}
		cm := d.r.readControlMesh()
		if d.r.err != nil {
			return nil
		}
		if err := checkControlMesh(&cm); err != nil {
			return errors.Wrap(err, slot.Name)
		}
		*slot.Mesh = &cm
	}
	return nil
}

func checkControlMesh(cm *scene.ControlMesh) error {
	for i, f := range cm.Faces {
		for _, v := range f {
			if int(v) >= len(cm.Positions) {
				return errors.Wrapf(ErrIndexRange, "face %d vertex %d of %d", i, v, len(cm.Positions))
			}
		}
	}
	return nil
}

func (d *decoder) rooms() error {
	n := d.doc.Header.RoomCount
	if !d.r.fits(n, nameSize+8) {
		d.r.truncate()
		return nil
	}
	d.doc.Rooms = make([]scene.Room, n)
	for i := range d.doc.Rooms {
		room := &d.doc.Rooms[i]
		room.Name = d.r.readName()
		room.Mesh = d.r.readControlMesh()
		if d.r.err != nil {
			return nil
		}
		if err := checkControlMesh(&room.Mesh); err != nil {
			return errors.Wrapf(err, "room %q", room.Name)
		}
	}
	return nil
}

func (d *decoder) groups() error {
	n := d.doc.Header.GroupCount
	if !d.r.fits(n, 52) {
		d.r.truncate()
		return nil
	}
	d.doc.Groups = make([]Group, n)
	for i := range d.doc.Groups {
		g := &d.doc.Groups[i]
		meshCount := d.r.readU8()
		g.Reserved = d.r.readU8()
		f1 := d.r.readU8()
		f2 := d.r.readU8()
		g.TransAnim = f1&grpTransAnim != 0
		g.CarBody = f1&grpCarBody != 0
		g.Land = f2&grpLand != 0
		g.HideReflection = f2&grpHideReflection != 0
		g.HasHidden = f2&grpHidden != 0
		g.Pivot = d.r.readMatrix()
		if g.HasHidden {
			g.HiddenOn = d.r.readU16()
			g.HiddenOff = d.r.readU16()
		}
		g.Meshes = make([]Mesh, 0, meshCount)
		for j := 0; j < int(meshCount); j++ {
			m, err := readMesh(d.r, d.ctx)
			if err != nil {
				return errors.Wrapf(err, "group %d mesh %d", i, j)
			}
			if d.r.err != nil {
				return nil
			}
			g.Meshes = append(g.Meshes, m)
		}
	}
	return nil
}

func (d *decoder) armature() error {
	if !d.doc.Header.HasBones {
		return nil
	}
	s, err := readSkeleton(d.r)
	d.doc.Skeleton = s
	return err
}

func (d *decoder) groupNames() error {
	h := &d.doc.Header
	if !h.HasStaticAnim && !h.HasNamedGroups {
		return nil
	}
	d.doc.GroupNames = make([]string, len(d.doc.Groups))
	for i := range d.doc.GroupNames {
		d.doc.GroupNames[i] = d.r.readName()
	}
	return nil
}

func (d *decoder) anchors() error {
	d.doc.Anchors = make([]scene.Anchor, d.doc.Header.AnchorCount)
	for i := range d.doc.Anchors {
		d.doc.Anchors[i] = readAnchor(d.r)
	}
	return nil
}

// convexHull skips the hull body; its layout is not decoded.
func (d *decoder) convexHull() error {
	if !d.doc.Header.ConvexHull {
		return nil
	}
	size := d.r.readU32()
	if d.r.err != nil {
		return nil
	}
	if size < 4 {
		return errors.Wrapf(ErrIndexRange, "hull size %d", size)
	}
	d.doc.HullSize = size
	if !d.r.fits(size-4, 1) {
		d.r.truncate()
		return nil
	}
	d.r.skip(int(size - 4))
	d.ctx.warnf("convex hull of %d bytes skipped", size)
	return nil
}

func (d *decoder) shapes() error {
	n := d.doc.Header.ShapeCount
	if !d.r.fits(n, 64) {
		d.r.truncate()
		return nil
	}
	d.doc.Shapes = make([]scene.Shape, n)
	for i := range d.doc.Shapes {
		d.doc.Shapes[i] = readShape(d.r)
	}
	return nil
}

// Encode writes s as a mesh file. Nothing is written to w unless encoding succeeds.
func Encode(w io.Writer, s *scene.Scene, opts EncodeOptions) (Warnings, error) {
	data, warnings, err := EncodeBytes(s, opts)
	if err != nil {
		return warnings, err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return warnings, errors.Wrap(err, "msh: write")
	}
	return warnings, nil
}

// EncodeBytes encodes s into memory.
func EncodeBytes(s *scene.Scene, opts EncodeOptions) ([]byte, Warnings, error) {
	ctx, err := newEncodeContext(s, opts)
	if err != nil {
		return nil, nil, err
	}
	e := &encoder{ctx: ctx, scene: s, w: &writer{names: ctx.names}, workers: opts.Workers}
	if err := e.encode(); err != nil {
		return nil, ctx.warnings, err
	}
	return e.w.buf, ctx.warnings, nil
}

type encoder struct {
	ctx     *EncodeContext
	scene   *scene.Scene
	w       *writer
	workers int
}

func (e *encoder) header() (Header, error) {
	s := e.scene
	c := &s.Controls
	h := Header{
		Version:        Version,
		ImageCount:     uint32(len(s.Images)),
		MaterialCount:  uint32(len(s.Materials)),
		GroupCount:     uint32(len(s.Groups)),
		HasBones:       s.Skeleton != nil && len(s.Skeleton.Bones) > 0,
		HasStaticAnim:  s.Flags.StaticAnim,
		HasClickable:   c.Clickable != nil,
		Outline:        s.Flags.Outline,
		HasNamedGroups: s.Flags.NamedGroups,

		Unknown:        s.Flags.Unknown,
		MinOutline:     c.MinOutline != nil,
		ZHeight:        c.ZHeight != nil,
		HideActorHead:  s.Flags.HideActorHead,
		HideActorHair:  s.Flags.HideActorHair,
		AutoAnimated:   s.Flags.AutoAnimated,
		TexReplaceMode: s.Flags.TexReplaceMode,

		LotBoundary: c.LotBoundary != nil,
		Shapes:      s.Flags.Shapes || len(s.Shapes) > 0,
		NegSpace:    c.NegSpace != nil,
		Shadow:      c.Shadow != nil,
		Collision:   c.Collision != nil,
		Blueprint:   s.Flags.Blueprint,
		ChildMesh:   s.Flags.ChildMesh || s.Flags.ChildMeshCount > 0,
		Rooms:       s.Flags.Rooms || len(s.Rooms) > 0,

		ShapeCount:     uint32(len(s.Shapes)),
		ChildMeshCount: s.Flags.ChildMeshCount,
		RoomCount:      uint32(len(s.Rooms)),
	}
	if len(s.Anchors) > 255 {
		return h, contractf(ErrCountOverflow, "%d anchors", len(s.Anchors))
	}
	h.AnchorCount = uint8(len(s.Anchors))
	for _, g := range s.Groups {
		if !unnamedGroup.MatchString(g.Name) {
			h.HasNamedGroups = true
		}
		if staticAnimGroup.MatchString(g.Name) {
			h.HasStaticAnim = true
		}
	}
	return h, nil
}

func (e *encoder) encode() error {
	s, w := e.scene, e.w
	h, err := e.header()
	if err != nil {
		return err
	}
	h.write(w)

	for _, name := range s.Images {
		if err := w.writeName(name); err != nil {
			return contractf(err, "image")
		}
	}

	for i := range s.Materials {
		m, err := materialFromScene(&s.Materials[i], e.ctx.images)
		if err != nil {
			return contractf(err, "material %q", s.Materials[i].Name)
		}
		m.write(w)
	}

	for _, slot := range s.Controls.Slots() {
		if cm := *slot.Mesh; cm != nil {
			if err := w.writeControlMesh(cm); err != nil {
				return contractf(err, "control mesh %s", slot.Name)
			}
		}
	}

	for i := range s.Rooms {
		room := &s.Rooms[i]
		if err := w.writeName(room.Name); err != nil {
			return contractf(err, "room")
		}
		if err := w.writeControlMesh(&room.Mesh); err != nil {
			return contractf(err, "room %q", room.Name)
		}
	}

	meshes, err := e.buildMeshes()
	if err != nil {
		return err
	}
	for gi := range s.Groups {
		g := &s.Groups[gi]
		if len(g.Meshes) > 255 {
			return contractf(ErrCountOverflow, "group %q has %d meshes", g.Name, len(g.Meshes))
		}
		w.writeU8(uint8(len(g.Meshes)))
		w.writeU8(g.Reserved)
		w.writeU8(bit(g.TransAnim, grpTransAnim) | bit(g.CarBody, grpCarBody))
		w.writeU8(bit(g.Land, grpLand) | bit(g.HideReflection, grpHideReflection) | bit(g.Hidden != nil, grpHidden))
		w.writeMatrix(g.Pivot)
		if g.Hidden != nil {
			w.writeU16(g.Hidden.On)
			w.writeU16(g.Hidden.Off)
		}
		for _, m := range meshes[gi] {
			m.write(w)
		}
	}

	if h.HasBones {
		sk, err := skeletonFromScene(e.ctx, s.Skeleton)
		if err != nil {
			return err
		}
		if err := sk.write(w); err != nil {
			return err
		}
	}

	if h.HasStaticAnim || h.HasNamedGroups {
		for _, g := range s.Groups {
			if err := w.writeName(g.Name); err != nil {
				return contractf(err, "group name")
			}
		}
	}

	for i := range s.Anchors {
		if err := writeAnchor(w, &s.Anchors[i]); err != nil {
			return err
		}
	}

	for i := range s.Shapes {
		writeShape(w, &s.Shapes[i])
	}
	return nil
}

// buildMeshes converts every group's meshes, running up to e.workers at once.
// Results keep scene order; the first failure in scene order is returned.
// Generated ids are drawn in scene order before any worker starts.
func (e *encoder) buildMeshes() ([][]*Mesh, error) {
	type job struct {
		group, mesh int
		ids         meshIDs
	}
	var jobs []job
	out := make([][]*Mesh, len(e.scene.Groups))
	for gi := range e.scene.Groups {
		g := &e.scene.Groups[gi]
		out[gi] = make([]*Mesh, len(g.Meshes))
		for mi := range g.Meshes {
			jobs = append(jobs, job{gi, mi, e.ctx.drawIDs(&g.Meshes[mi])})
		}
	}
	errs := make([]error, len(jobs))

	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	ch := make(chan int, len(jobs))
	for i := range jobs {
		ch <- i
	}
	close(ch)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				j := jobs[i]
				g := &e.scene.Groups[j.group]
				m := &g.Meshes[j.mesh]
				built, err := buildMesh(e.ctx, m, j.ids)
				if err != nil {
					name := m.Name
					if name == "" {
						name = MeshName(j.group, j.mesh)
					}
					errs[i] = contractf(err, "mesh %q of group %q", name, g.Name)
					continue
				}
				out[j.group][j.mesh] = built
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
