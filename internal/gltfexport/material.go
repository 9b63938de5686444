package gltfexport

import (
	"bytes"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"movies-msh/internal/msh"
	"movies-msh/internal/scene"
	"movies-msh/internal/texture"
)

const alphaCutoff = 0.5

func (e *exporter) material(i int) uint32 {
	m := &e.src.Materials[i]
	color := &[4]float32{
		float32(m.Color[2]) / 255,
		float32(m.Color[1]) / 255,
		float32(m.Color[0]) / 255,
		float32(m.Color[3]) / 255,
	}
	roughness := float32(1)
	metallic := float32(0)
	gm := &gltf.Material{
		Name:        msh.MaterialName(i),
		DoubleSided: m.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
			RoughnessFactor: &roughness,
			MetallicFactor:  &metallic,
		},
	}
	switch {
	case m.AlphaTest:
		gm.AlphaMode = gltf.AlphaMask
		cutoff := float32(alphaCutoff)
		gm.AlphaCutoff = &cutoff
	case m.UseAlpha || m.Additive || m.Glass || m.Water:
		gm.AlphaMode = gltf.AlphaBlend
	}
	if m.SelfLit {
		gm.EmissiveFactor = [3]float32{color[0], color[1], color[2]}
	}

	if tex, ok := e.texture(int(m.Maps[scene.SlotDiffuse]), m.WrapU, m.WrapV); ok {
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
	}
	if tex, ok := e.texture(int(m.Maps[scene.SlotLightmap]), false, false); ok {
		gm.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(tex), TexCoord: 1}
	}

	extras := map[string]any{}
	for slot, key := range []string{"diffuse", "reflection", "lightmap", "specular"} {
		if idx := int(m.Maps[slot]); idx >= 0 && idx < len(e.src.Images) {
			extras[key] = e.src.Images[idx]
		}
	}
	if m.Invisible {
		extras["invisible"] = true
	}
	if m.ScrollU != 0 || m.ScrollV != 0 || m.RotUV != 0 {
		extras["scroll"] = [3]int8{m.ScrollU, m.ScrollV, m.RotUV}
	}
	if len(extras) > 0 {
		gm.Extras = extras
	}

	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, gm)
	return idx
}

// texture returns the glTF texture for an image and wrap mode, embedding the
// image as PNG on first use.
func (e *exporter) texture(image int, wrapU, wrapV bool) (uint32, bool) {
	if image < 0 || image >= len(e.src.Images) || e.opts.Textures == nil {
		return 0, false
	}
	key := textureKey{image, wrapU, wrapV}
	if tex, ok := e.textures[key]; ok {
		return tex, true
	}

	img, seen := e.images[image]
	if !seen {
		img = e.embedImage(image)
		e.images[image] = img
	}
	if img == nil {
		return 0, false
	}

	sampler := &gltf.Sampler{
		MagFilter: gltf.MagLinear,
		MinFilter: gltf.MinLinearMipMapLinear,
		WrapS:     wrapMode(wrapU),
		WrapT:     wrapMode(wrapV),
	}
	e.doc.Samplers = append(e.doc.Samplers, sampler)
	tex := uint32(len(e.doc.Textures))
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{
		Name:    e.src.Images[image],
		Sampler: gltf.Index(uint32(len(e.doc.Samplers) - 1)),
		Source:  img,
	})
	e.textures[key] = tex
	return tex, true
}

func (e *exporter) embedImage(image int) *uint32 {
	name := e.src.Images[image]
	img := e.opts.Textures.Resolve(name)
	if img == nil {
		e.warnings = append(e.warnings, "texture not found: "+name)
		return nil
	}
	data, err := texture.EncodePNG(img)
	if err != nil {
		e.warnings = append(e.warnings, err.Error())
		return nil
	}
	idx, err := modeler.WriteImage(e.doc, name, "image/png", bytes.NewReader(data))
	if err != nil {
		e.warnings = append(e.warnings, err.Error())
		return nil
	}
	e.doc.Buffers[0].ByteLength = uint32(len(e.doc.Buffers[0].Data))
	return gltf.Index(idx)
}

func wrapMode(repeat bool) gltf.WrappingMode {
	if repeat {
		return gltf.WrapRepeat
	}
	return gltf.WrapClampToEdge
}
