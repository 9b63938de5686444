package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"

	"movies-msh/internal/batch"
	"movies-msh/internal/config"
	"movies-msh/internal/msh"
)

// mshcheck decodes each file, re-encodes the recovered scene and compares the bytes.
func main() {
	dir := flag.String("dir", "", "Check every .msh file below this directory")
	verbose := flag.Bool("v", false, "Print passing files and warnings")
	cmName := flag.String("charmap", config.DefaultCharmap, "Code page of stored names")
	flag.Parse()

	cfg := config.Config{Charmap: *cmName}
	cm, err := cfg.Encoding()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	paths := flag.Args()
	if *dir != "" {
		items, err := batch.Scan(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, it := range items {
			paths = append(paths, filepath.Join(*dir, filepath.FromSlash(it.Path)))
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mshcheck [-v] [-dir meshes] [file.msh...]")
		os.Exit(2)
	}

	passed, skipped, failed := 0, 0, 0
	for _, path := range paths {
		status, warnings, err := check(path, cm)
		switch {
		case err != nil:
			failed++
			fmt.Printf("FAIL %s: %v\n", path, err)
		case status != "":
			skipped++
			fmt.Printf("SKIP %s: %s\n", path, status)
		default:
			passed++
			if *verbose {
				fmt.Printf("ok   %s\n", path)
			}
		}
		if *verbose {
			for _, w := range warnings {
				fmt.Printf("     warning: %s\n", w)
			}
		}
	}
	fmt.Printf("%d passed, %d skipped, %d failed\n", passed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// check returns a non-empty status when the file cannot be compared byte for byte.
func check(path string, cm *charmap.Charmap) (string, msh.Warnings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	typ := msh.TypeFromName(filepath.Base(path))
	doc, err := msh.DecodeBytes(data, msh.DecodeOptions{Charmap: cm, MeshType: typ})
	if err != nil {
		return "", nil, err
	}
	warnings := doc.Warnings

	s, err := doc.Scene()
	if err != nil {
		return "", warnings, err
	}
	out, encWarnings, err := msh.EncodeBytes(s, msh.EncodeOptions{Charmap: cm})
	warnings = append(warnings, encWarnings...)
	if err != nil {
		return "", warnings, err
	}
	if doc.HullSize > 0 {
		return fmt.Sprintf("convex hull of %d bytes is not re-encoded", doc.HullSize), warnings, nil
	}
	if !bytes.Equal(data, out) {
		return "", warnings, fmt.Errorf("re-encoded %d bytes differ from %d input bytes at offset %d", len(out), len(data), firstDiff(data, out))
	}
	return "", warnings, nil
}

func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
