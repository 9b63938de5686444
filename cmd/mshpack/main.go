package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"movies-msh/internal/config"
	"movies-msh/internal/msh"
	"movies-msh/internal/scene"
)

func main() {
	output := flag.String("o", "", "Output .msh path (default: input with .msh extension)")
	meshType := flag.String("type", "", "Mesh type (default: scene type, then output file name)")
	workers := flag.Int("workers", 0, "Meshes encoded concurrently (default: NumCPU)")
	cmName := flag.String("charmap", config.DefaultCharmap, "Code page of stored names")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mshpack [-o out.msh] [-type T] scene.yaml")
		os.Exit(2)
	}
	input := flag.Arg(0)

	cfg := config.Config{Charmap: *cmName, Workers: *workers}
	cfg.Resolve(config.Flags{MeshDir: filepath.Dir(input)})
	cm, err := cfg.Encoding()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	s, err := scene.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".msh"
	}
	switch {
	case *meshType != "":
		s.Type = *meshType
	case s.Type == "":
		s.Type = msh.TypeFromName(filepath.Base(out))
	}

	data, warnings, err := msh.EncodeBytes(s, msh.EncodeOptions{Charmap: cm, Workers: cfg.Workers})
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d bytes, %d groups, type %q\n", out, len(data), len(s.Groups), s.Type)
}
