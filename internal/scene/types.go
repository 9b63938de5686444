package scene

// Matrix is a 4×3 affine transform: three basis rows followed by a translation row.
// Points are row vectors: p' = p.x*M[0] + p.y*M[1] + p.z*M[2] + M[3].
type Matrix [4][3]float32

// Box is an axis-aligned bounding box.
type Box struct {
	Min [3]float32 `yaml:"min,flow"`
	Max [3]float32 `yaml:"max,flow"`
}

// Scene is the host-neutral description consumed by the encoder and produced by the decoder.
type Scene struct {
	Name      string        `yaml:"name,omitempty"`
	Type      string        `yaml:"type,omitempty"` // mesh-type tag, selects the neck point table
	Flags     Flags         `yaml:"flags"`
	Bounds    *Box          `yaml:"bounds,omitempty"` // position quantization box; nil = computed
	Images    []string      `yaml:"images,omitempty"`
	Materials []Material    `yaml:"materials,omitempty"`
	Controls  ControlMeshes `yaml:"controls,omitempty"`
	Rooms     []Room        `yaml:"rooms,omitempty"`
	Groups    []Group       `yaml:"groups,omitempty"`
	Skeleton  *Skeleton     `yaml:"skeleton,omitempty"`
	Anchors   []Anchor      `yaml:"anchors,omitempty"`
	Shapes    []Shape       `yaml:"shapes,omitempty"`
}

// Flags are the document-level switches that are not implied by section contents.
type Flags struct {
	HideActorHead  bool   `yaml:"hide_actor_head,omitempty"`
	HideActorHair  bool   `yaml:"hide_actor_hair,omitempty"`
	AutoAnimated   bool   `yaml:"is_auto_animated,omitempty"`
	TexReplaceMode bool   `yaml:"tex_replace_mode,omitempty"`
	StaticAnim     bool   `yaml:"has_static_anim,omitempty"`
	NamedGroups    bool   `yaml:"has_named_groups,omitempty"`
	Shapes         bool   `yaml:"has_shapes,omitempty"`
	ChildMesh      bool   `yaml:"has_childmesh,omitempty"`
	ChildMeshCount uint32 `yaml:"childmesh_count,omitempty"`
	Rooms          bool   `yaml:"has_rooms,omitempty"`
	Blueprint      bool   `yaml:"has_blueprint,omitempty"`
	Unknown        bool   `yaml:"unk,omitempty"`
	Outline        uint8  `yaml:"outline,omitempty"`
}

// Material slot order.
const (
	SlotDiffuse = iota
	SlotReflection
	SlotLightmap
	SlotSpecular
)

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
	A uint8 `yaml:"a"`
}

// Material references images by name; an empty slot means no texture.
type Material struct {
	Name     string    `yaml:"name"`
	Textures [4]string `yaml:"textures,flow"`
	Color    Color     `yaml:"color"`

	DoubleSided    bool `yaml:"doublesided,omitempty"`
	FloorShadowTex bool `yaml:"floor_shadow_tex,omitempty"`
	AlphaSeparate  bool `yaml:"alpha_separate,omitempty"`

	WrapU          bool  `yaml:"wrap_u,omitempty"`
	WrapV          bool  `yaml:"wrap_v,omitempty"`
	UseAlpha       bool  `yaml:"use_alpha,omitempty"`
	AlphaTest      bool  `yaml:"enable_alpha_test,omitempty"`
	Glass          bool  `yaml:"glass,omitempty"`
	Water          bool  `yaml:"water,omitempty"`
	StillWater     bool  `yaml:"still_water,omitempty"`
	AlphaPerVertex bool  `yaml:"alpha_per_vertex,omitempty"`
	AlphaEnvMap    uint8 `yaml:"alphaenvmap,omitempty"`

	Invisible     bool `yaml:"invisible,omitempty"`
	NotZWrite     bool `yaml:"not_z_write,omitempty"`
	SelfLit       bool `yaml:"self_lit,omitempty"`
	NoFloorShadow bool `yaml:"no_floor_shadow,omitempty"`
	NoDelayDraw   bool `yaml:"no_delaydraw_transp,omitempty"`
	TriSort       bool `yaml:"tri_sort,omitempty"`
	Additive      bool `yaml:"additive,omitempty"`

	ScrollU int8 `yaml:"scroll_u,omitempty"`
	ScrollV int8 `yaml:"scroll_v,omitempty"`
	RotUV   int8 `yaml:"rot_uv,omitempty"`
}

// ControlMesh is an untextured triangle mesh with a fixed semantic role.
type ControlMesh struct {
	Positions [][3]float32 `yaml:"positions,flow"`
	Faces     [][3]uint16  `yaml:"faces,flow"`
}

// ControlMeshes holds the seven optional control meshes; nil means absent.
type ControlMeshes struct {
	Clickable   *ControlMesh `yaml:"clickable,omitempty"`
	Collision   *ControlMesh `yaml:"collision,omitempty"`
	Shadow      *ControlMesh `yaml:"shadow,omitempty"`
	ZHeight     *ControlMesh `yaml:"z_height,omitempty"`
	NegSpace    *ControlMesh `yaml:"neg_space,omitempty"`
	MinOutline  *ControlMesh `yaml:"min_outline,omitempty"`
	LotBoundary *ControlMesh `yaml:"lot_boundary,omitempty"`
}

// ControlSlot names one control mesh position in stream order.
type ControlSlot struct {
	Name string
	Mesh **ControlMesh
}

// Slots returns the control meshes in stream order.
func (c *ControlMeshes) Slots() []ControlSlot {
	return []ControlSlot{
		{"clickable", &c.Clickable},
		{"collision", &c.Collision},
		{"shadow", &c.Shadow},
		{"z_height", &c.ZHeight},
		{"neg_space", &c.NegSpace},
		{"min_outline", &c.MinOutline},
		{"lot_boundary", &c.LotBoundary},
	}
}

// Room is a named control mesh.
type Room struct {
	Name string      `yaml:"name"`
	Mesh ControlMesh `yaml:"mesh"`
}

// Hidden is the optional hidden-on/hidden-off pair of a group.
type Hidden struct {
	On  uint16 `yaml:"on"`
	Off uint16 `yaml:"off"`
}

// Group is a pivot with an ordered list of meshes.
type Group struct {
	Name           string  `yaml:"name"`
	Reserved       uint8   `yaml:"reserved,omitempty"`
	Pivot          Matrix  `yaml:"pivot,flow"`
	TransAnim      bool    `yaml:"has_transanim,omitempty"`
	CarBody        bool    `yaml:"is_a_carbody,omitempty"`
	Land           bool    `yaml:"is_land,omitempty"`
	HideReflection bool    `yaml:"hide_reflection,omitempty"`
	Hidden         *Hidden `yaml:"hidden,omitempty"`
	Meshes         []Mesh  `yaml:"meshes,omitempty"`
}

// Face is a triangle or quad with per-corner texture coordinates.
type Face struct {
	Verts      []int        `yaml:"v,flow"`
	UV         [][2]float64 `yaml:"uv,flow,omitempty"`
	LightmapUV [][2]float64 `yaml:"lm,flow,omitempty"`
}

// Influence is one bone weight on a vertex.
type Influence struct {
	Bone   string  `yaml:"bone"`
	Weight float32 `yaml:"w"`
}

// MeshID is the optional id triple. Generate asks the encoder for fresh random ids.
type MeshID struct {
	Generate bool   `yaml:"generate,omitempty"`
	Index    uint32 `yaml:"index"`
	Vertex   int32  `yaml:"vertex"`
	Skeleton uint32 `yaml:"skeleton"`
}

// Ranges are quantization ranges in their stored form. V components hold 1-v.
type Ranges struct {
	PosMin      [3]float32 `yaml:"pos_min,flow"`
	PosMax      [3]float32 `yaml:"pos_max,flow"`
	UVMin       [2]float32 `yaml:"uv_min,flow"`
	UVMax       [2]float32 `yaml:"uv_max,flow"`
	LightmapMin [2]float32 `yaml:"lm_min,flow"`
	LightmapMax [2]float32 `yaml:"lm_max,flow"`
}

// Mesh is one textured mesh of a group.
type Mesh struct {
	Name      string       `yaml:"name,omitempty"`
	Material  string       `yaml:"material,omitempty"`
	Transform *Matrix      `yaml:"transform,flow,omitempty"` // baked into positions; nil = identity
	Positions [][3]float64 `yaml:"positions,flow"`
	Normals   [][3]float64 `yaml:"normals,flow,omitempty"`
	Faces     []Face       `yaml:"faces"`

	// Weights holds the bone influences per position; nil for unskinned meshes.
	Weights [][]Influence `yaml:"weights,omitempty"`

	HasNeckConnect bool        `yaml:"has_neckconnect,omitempty"`
	NeckConnect    []int       `yaml:"neckconnect,flow,omitempty"`
	NeckPoints     map[int]int `yaml:"neck_points,omitempty"` // explicit point per vertex; others snap to nearest

	FloorReflections   bool  `yaml:"has_floor_reflections,omitempty"`
	NoOutline          bool  `yaml:"no_outline,omitempty"`
	Landscape          bool  `yaml:"is_landscape,omitempty"`
	AcceptsActorShadow bool  `yaml:"accepts_actor_shadow,omitempty"`
	MinuteHand         bool  `yaml:"is_minutehand,omitempty"`
	HourHand           bool  `yaml:"is_hourhand,omitempty"`
	StaticBackdrop     bool  `yaml:"static_backdrop,omitempty"`
	UnknownFlag        uint8 `yaml:"unk_flag,omitempty"`
	BonesPerVertex     uint8 `yaml:"bone_per_vertex,omitempty"`

	ID     *MeshID `yaml:"meshid,omitempty"`
	Ranges *Ranges `yaml:"ranges,omitempty"` // fixed quantization ranges; nil = computed
}

// HasLightmap reports whether any face carries lightmap coordinates.
func (m *Mesh) HasLightmap() bool {
	for i := range m.Faces {
		if len(m.Faces[i].LightmapUV) > 0 {
			return true
		}
	}
	return false
}

// Bone is one joint of a skeleton. Parent is empty for roots.
type Bone struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
	Matrix Matrix `yaml:"matrix,flow"` // armature-space rest pose
}

// Skeleton is an ordered bone list. When RigID is zero, Type is looked up in the rig table.
type Skeleton struct {
	RigID uint32 `yaml:"rig_id,omitempty"`
	Type  string `yaml:"type,omitempty"`
	Bones []Bone `yaml:"bones"`
}

// Anchor is a named transform frame.
type Anchor struct {
	Name   string `yaml:"name"`
	Matrix Matrix `yaml:"matrix,flow"`
}

// Shape is a transformed box.
type Shape struct {
	Reserved   uint32     `yaml:"reserved,omitempty"`
	Matrix     Matrix     `yaml:"matrix,flow"`
	Dimensions [3]float32 `yaml:"dimensions,flow"`
}
