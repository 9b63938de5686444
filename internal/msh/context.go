package msh

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"movies-msh/internal/scene"
)

// Warnings are non-fatal findings collected while encoding or decoding.
type Warnings []string

// EncodeOptions configure Encode.
type EncodeOptions struct {
	// Charmap converts names; nil means DefaultCharmap.
	Charmap *charmap.Charmap
	// Workers bounds the number of meshes encoded concurrently; <1 means 1.
	Workers int
	// NewID returns fresh mesh ids; nil draws them from random UUIDs.
	NewID func() uint32
}

// DecodeOptions configure Decode.
type DecodeOptions struct {
	Charmap *charmap.Charmap
	// MeshType selects the neck point table used to report neck positions.
	MeshType string
}

// randomID takes 32 bits of a version 4 UUID.
func randomID() uint32 {
	u := uuid.New()
	return binary.LittleEndian.Uint32(u[:4])
}

// EncodeContext carries the lookup tables shared by every section of one encode call.
type EncodeContext struct {
	names     *charmap.Charmap
	images    map[string]int
	materials map[string]int
	bones     map[string]int
	neck      *NeckTable
	neckKnown bool
	meshType  string
	bounds    scene.Box

	mu       sync.Mutex
	newID    func() uint32
	warnings Warnings
	neckWarn sync.Once
}

func newEncodeContext(s *scene.Scene, opts EncodeOptions) (*EncodeContext, error) {
	ctx := &EncodeContext{
		names:     opts.Charmap,
		images:    make(map[string]int, len(s.Images)),
		materials: make(map[string]int, len(s.Materials)),
		bones:     make(map[string]int),
		meshType:  s.Type,
		newID:     opts.NewID,
	}
	if ctx.names == nil {
		ctx.names = DefaultCharmap
	}
	if ctx.newID == nil {
		ctx.newID = randomID
	}
	ctx.neck, ctx.neckKnown = NeckTableFor(s.Type)
	for i, name := range s.Images {
		if _, dup := ctx.images[name]; dup {
			ctx.warnf("image %q listed more than once", name)
			continue
		}
		ctx.images[name] = i
	}
	for i, m := range s.Materials {
		if _, dup := ctx.materials[m.Name]; dup {
			return nil, contractf(ErrDuplicateName, "material %q", m.Name)
		}
		ctx.materials[m.Name] = i
	}
	if s.Skeleton != nil {
		for i, b := range s.Skeleton.Bones {
			if _, dup := ctx.bones[b.Name]; dup {
				return nil, contractf(ErrDuplicateName, "bone %q", b.Name)
			}
			ctx.bones[b.Name] = i
		}
	}
	if s.Bounds != nil {
		ctx.bounds = *s.Bounds
	} else {
		ctx.bounds = s.ComputeBounds()
	}
	return ctx, nil
}

func (c *EncodeContext) warnf(format string, args ...interface{}) {
	c.mu.Lock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

func (c *EncodeContext) nextID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newID()
}

// DecodeContext carries the state shared by the sections of one decode call.
type DecodeContext struct {
	names     *charmap.Charmap
	meshType  string
	neck      *NeckTable
	neckKnown bool
	neckWarn  bool
	warnings  Warnings
}

func newDecodeContext(opts DecodeOptions) *DecodeContext {
	ctx := &DecodeContext{names: opts.Charmap, meshType: opts.MeshType}
	if ctx.names == nil {
		ctx.names = DefaultCharmap
	}
	ctx.neck, ctx.neckKnown = NeckTableFor(opts.MeshType)
	return ctx
}

func (c *DecodeContext) warnf(format string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// neckTable returns the table for neck positions, warning once when the type has none of its own.
func (c *DecodeContext) neckTable() *NeckTable {
	if !c.neckKnown && !c.neckWarn {
		c.neckWarn = true
		c.warnf("mesh type %q has no neck points, using %s", c.meshType, TypeMaleCostume)
	}
	return c.neck
}
