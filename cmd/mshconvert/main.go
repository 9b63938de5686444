package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"movies-msh/internal/batch"
	"movies-msh/internal/config"
	"movies-msh/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	testN := flag.Int("test", 0, "Convert only the first N files for testing")
	match := flag.String("match", "", "Convert only files whose path contains this string")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	dataDir := flag.String("data", "", "Path to the game directory (default: auto-detect)")
	meshDir := flag.String("meshes", "", "Mesh directory (default: data/meshes)")
	texDir := flag.String("textures", "", "Texture directory (default: data/textures)")
	outputDir := flag.String("output", "", "Output directory (default: msh-export)")
	webp := flag.Bool("webp", false, "Also write WebP copies of the referenced textures")
	controls := flag.Bool("controls", false, "Export control meshes and rooms")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		DataDir:    *dataDir,
		MeshDir:    *meshDir,
		TextureDir: *texDir,
		OutputDir:  *outputDir,
		Workers:    *workers,
	})
	cfg.WebPTextures = cfg.WebPTextures || *webp
	cfg.ControlMeshes = cfg.ControlMeshes || *controls

	if cfg.MeshDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find the mesh directory. Use -data, -meshes or config.json.")
		os.Exit(1)
	}
	cm, err := cfg.Encoding()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	items, err := batch.Scan(cfg.MeshDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *match != "" {
		var filtered []batch.Item
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.Path), strings.ToLower(*match)) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	// Limit for testing
	if *testN > 0 && *testN < len(items) {
		items = items[:*testN]
	}

	if len(items) == 0 {
		fmt.Println("No .msh files to convert.")
		os.Exit(0)
	}

	// Build texture index
	texIndex := texture.BuildIndex(cfg.MeshDir, cfg.TextureDir)
	texCache := texture.NewCache(texIndex, cfg.MaxTextureSize)
	fmt.Printf("Textures: %d indexed\n", texIndex.Len())

	fmt.Println("The Movies MSH → glTF")
	fmt.Printf("Files: %d, Workers: %d\n", len(items), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	results := batch.Run(batch.Config{
		MeshDir:      cfg.MeshDir,
		OutputDir:    cfg.OutputDir,
		Textures:     texCache,
		Charmap:      cm,
		WebPTextures: cfg.WebPTextures,
		Controls:     cfg.ControlMeshes,
		Workers:      cfg.Workers,
		Progress: func(format string, args ...any) {
			fmt.Printf(format, args...)
		},
	}, items)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, warned := 0, 0
	var failures []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failures = append(failures, r)
		}
		if len(r.Warnings) > 0 {
			warned++
		}
	}

	fmt.Printf("Converted: %d/%d (%d with warnings)\n", success, len(items), warned)

	if len(failures) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failures))
		for _, f := range failures[:min(len(failures), 20)] {
			fmt.Printf("  %s: %s\n", f.Path, f.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failures) > 0 {
		os.Exit(1)
	}
}
