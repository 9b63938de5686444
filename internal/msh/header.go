package msh

// Version is the only stream version this package reads and writes.
const Version = 10

const headerSize = 24

// Primary header flag bits.
const (
	hdrUnknown        = 1 << 0
	hdrMinOutline     = 1 << 1
	hdrZHeight        = 1 << 2
	hdrHideActorHead  = 1 << 3
	hdrHideActorHair  = 1 << 4
	hdrAutoAnimated   = 1 << 5
	hdrTexReplaceMode = 1 << 6
	hdrConvexHull     = 1 << 7
)

// Secondary header flag bits.
const (
	hdrLotBoundary = 1 << 0
	hdrShapes      = 1 << 1
	hdrNegSpace    = 1 << 2
	hdrShadow      = 1 << 3
	hdrCollision   = 1 << 4
	hdrBlueprint   = 1 << 5
	hdrChildMesh   = 1 << 6
	hdrRooms       = 1 << 7
)

// Header is the fixed document header plus the optional counts that follow it.
type Header struct {
	Version       uint32
	ImageCount    uint32
	MaterialCount uint32
	GroupCount    uint32

	HasBones       bool
	HasStaticAnim  bool
	AnchorCount    uint8
	HasClickable   bool
	Outline        uint8
	HasNamedGroups bool

	Unknown        bool
	MinOutline     bool
	ZHeight        bool
	HideActorHead  bool
	HideActorHair  bool
	AutoAnimated   bool
	TexReplaceMode bool
	ConvexHull     bool

	LotBoundary bool
	Shapes      bool
	NegSpace    bool
	Shadow      bool
	Collision   bool
	Blueprint   bool
	ChildMesh   bool
	Rooms       bool

	ShapeCount     uint32
	ChildMeshCount uint32
	RoomCount      uint32
}

func (h *Header) flags1() uint8 {
	return bit(h.Unknown, hdrUnknown) | bit(h.MinOutline, hdrMinOutline) | bit(h.ZHeight, hdrZHeight) |
		bit(h.HideActorHead, hdrHideActorHead) | bit(h.HideActorHair, hdrHideActorHair) |
		bit(h.AutoAnimated, hdrAutoAnimated) | bit(h.TexReplaceMode, hdrTexReplaceMode) | bit(h.ConvexHull, hdrConvexHull)
}

func (h *Header) flags2() uint8 {
	return bit(h.LotBoundary, hdrLotBoundary) | bit(h.Shapes, hdrShapes) | bit(h.NegSpace, hdrNegSpace) |
		bit(h.Shadow, hdrShadow) | bit(h.Collision, hdrCollision) | bit(h.Blueprint, hdrBlueprint) |
		bit(h.ChildMesh, hdrChildMesh) | bit(h.Rooms, hdrRooms)
}

func (h *Header) setFlags(f1, f2 uint8) {
	h.Unknown = f1&hdrUnknown != 0
	h.MinOutline = f1&hdrMinOutline != 0
	h.ZHeight = f1&hdrZHeight != 0
	h.HideActorHead = f1&hdrHideActorHead != 0
	h.HideActorHair = f1&hdrHideActorHair != 0
	h.AutoAnimated = f1&hdrAutoAnimated != 0
	h.TexReplaceMode = f1&hdrTexReplaceMode != 0
	h.ConvexHull = f1&hdrConvexHull != 0

	h.LotBoundary = f2&hdrLotBoundary != 0
	h.Shapes = f2&hdrShapes != 0
	h.NegSpace = f2&hdrNegSpace != 0
	h.Shadow = f2&hdrShadow != 0
	h.Collision = f2&hdrCollision != 0
	h.Blueprint = f2&hdrBlueprint != 0
	h.ChildMesh = f2&hdrChildMesh != 0
	h.Rooms = f2&hdrRooms != 0
}

// controlPresent reports which control meshes follow the material table, in stream order.
func (h *Header) controlPresent() [7]bool {
	return [7]bool{h.HasClickable, h.Collision, h.Shadow, h.ZHeight, h.NegSpace, h.MinOutline, h.LotBoundary}
}

func (h *Header) write(w *writer) {
	w.writeU32(h.Version)
	w.writeU32(h.ImageCount)
	w.writeU32(h.MaterialCount)
	w.writeU32(h.GroupCount)
	w.writeBool(h.HasBones)
	w.writeBool(h.HasStaticAnim)
	w.writeU8(h.AnchorCount)
	w.writeBool(h.HasClickable)
	w.writeU8(h.Outline)
	w.writeU8(h.flags1())
	w.writeU8(h.flags2())
	w.writeBool(h.HasNamedGroups)
	if h.Shapes {
		w.writeU32(h.ShapeCount)
	}
	if h.ChildMesh {
		w.writeU32(h.ChildMeshCount)
	}
	if h.Rooms {
		w.writeU32(h.RoomCount)
	}
}

// readFixed reads the fixed part after the version field.
func (h *Header) readFixed(r *reader) {
	h.ImageCount = r.readU32()
	h.MaterialCount = r.readU32()
	h.GroupCount = r.readU32()
	h.HasBones = r.readBool()
	h.HasStaticAnim = r.readBool()
	h.AnchorCount = r.readU8()
	h.HasClickable = r.readBool()
	h.Outline = r.readU8()
	f1 := r.readU8()
	f2 := r.readU8()
	h.setFlags(f1, f2)
	h.HasNamedGroups = r.readBool()
}

func (h *Header) readCounts(r *reader) {
	if h.Shapes {
		h.ShapeCount = r.readU32()
	}
	if h.ChildMesh {
		h.ChildMeshCount = r.readU32()
	}
	if h.Rooms {
		h.RoomCount = r.readU32()
	}
}
