package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"

	"movies-msh/internal/config"
	"movies-msh/internal/msh"
	"movies-msh/internal/scene"
)

func main() {
	asYAML := flag.Bool("yaml", false, "Print the scene description as YAML")
	asSpew := flag.Bool("spew", false, "Dump the decoded document with go-spew")
	meshType := flag.String("type", "", "Mesh type (default: derived from the file name)")
	cmName := flag.String("charmap", config.DefaultCharmap, "Code page of stored names")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mshdump [-yaml|-spew] [-type T] file.msh...")
		os.Exit(2)
	}

	cfg := config.Config{Charmap: *cmName}
	cm, err := cfg.Encoding()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	spewConfig := spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true

	failed := false
	for _, path := range flag.Args() {
		typ := *meshType
		if typ == "" {
			typ = msh.TypeFromName(filepath.Base(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		doc, err := msh.DecodeBytes(data, msh.DecodeOptions{Charmap: cm, MeshType: typ})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		switch {
		case *asSpew:
			spewConfig.Fdump(os.Stdout, doc)
		case *asYAML:
			s, err := doc.Scene()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed = true
				continue
			}
			s.Name = filepath.Base(path)
			if err := scene.Write(os.Stdout, s); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed = true
			}
		default:
			printSummary(path, len(data), doc)
		}
		for _, w := range doc.Warnings {
			fmt.Fprintf(os.Stderr, "%s: warning: %s\n", path, w)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printSummary(path string, size int, doc *msh.Document) {
	h := &doc.Header
	fmt.Printf("=== %s (%d bytes, version %d, type %q) ===\n", path, size, h.Version, doc.MeshType)
	fmt.Printf("Flags: bones=%v static_anim=%v named_groups=%v outline=%d hide_head=%v hide_hair=%v auto_anim=%v tex_replace=%v blueprint=%v\n",
		h.HasBones, h.HasStaticAnim, h.HasNamedGroups, h.Outline, h.HideActorHead, h.HideActorHair, h.AutoAnimated, h.TexReplaceMode, h.Blueprint)

	fmt.Printf("Images (%d):\n", len(doc.Images))
	for i, img := range doc.Images {
		fmt.Printf("  [%d] %s\n", i, img)
	}

	fmt.Printf("Materials (%d):\n", len(doc.Materials))
	for i, m := range doc.Materials {
		fmt.Printf("  [%d] maps=%v color=#%02x%02x%02x%02x double_sided=%v alpha=%v alpha_test=%v additive=%v\n",
			i, m.Maps, m.Color[2], m.Color[1], m.Color[0], m.Color[3], m.DoubleSided, m.UseAlpha, m.AlphaTest, m.Additive)
	}

	for _, slot := range doc.Controls.Slots() {
		if cm := *slot.Mesh; cm != nil {
			fmt.Printf("Control %s: %d verts, %d faces\n", slot.Name, len(cm.Positions), len(cm.Faces))
		}
	}
	for _, r := range doc.Rooms {
		fmt.Printf("Room %s: %d verts, %d faces\n", r.Name, len(r.Mesh.Positions), len(r.Mesh.Faces))
	}

	fmt.Printf("Groups (%d):\n", len(doc.Groups))
	for gi, g := range doc.Groups {
		fmt.Printf("  [%d] %s pivot=%v meshes=%d", gi, doc.GroupName(gi), g.Pivot[3], len(g.Meshes))
		if g.HasHidden {
			fmt.Printf(" hidden=%d/%d", g.HiddenOn, g.HiddenOff)
		}
		fmt.Println()
		for mi, m := range g.Meshes {
			fmt.Printf("    %s material=%d verts=%d faces=%d lightmap=%v weights=%v neck=%d",
				msh.MeshName(gi, mi), m.MaterialID, len(m.Positions), m.FaceCount(), m.Flags.Lightmap, m.Flags.Weights, len(m.Neck))
			if m.Flags.MeshID {
				fmt.Printf(" id=%d/%d/%d", m.IndexID, m.VertexID, m.SkeletonID)
			}
			fmt.Println()
		}
	}

	if sk := doc.Skeleton; sk != nil {
		fmt.Printf("Skeleton: rig %d %q, %d bones\n", sk.RigID, sk.Type(), len(sk.Bones))
		for i, b := range sk.Bones {
			parent := "-"
			if b.Parent >= 0 {
				parent = sk.Bones[b.Parent].Name
			}
			fmt.Printf("  [%d] %s parent=%s at %v\n", i, b.Name, parent, b.Matrix[3])
		}
	}
	for _, a := range doc.Anchors {
		fmt.Printf("Anchor %s at %v\n", a.Name, a.Matrix[3])
	}
	for i, s := range doc.Shapes {
		fmt.Printf("Shape %d: dims=%v at %v\n", i, s.Dimensions, s.Matrix[3])
	}
	if doc.HullSize > 0 {
		fmt.Printf("Convex hull: %d bytes (skipped)\n", doc.HullSize)
	}
}
