package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"movies-msh/internal/gltfexport"
	"movies-msh/internal/msh"
	"movies-msh/internal/texture"
)

// Config holds all shared resources for a batch run.
type Config struct {
	MeshDir      string
	OutputDir    string
	Textures     texture.Resolver
	Charmap      *charmap.Charmap
	WebPTextures bool
	Controls     bool
	Workers      int

	// Progress receives a line every two seconds; nil disables reporting.
	Progress func(format string, args ...any)
}

// Item is one .msh file below the mesh directory.
type Item struct {
	Path string // relative to MeshDir, slash separated
	Type string // mesh-type tag derived from the file name
}

// Result holds the outcome of processing one item.
type Result struct {
	Item
	Groups   int
	Meshes   int
	Bones    int
	Warnings []string
	Success  bool
	Error    string
}

// Scan lists the .msh files below meshDir in lexical order.
func Scan(meshDir string) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(meshDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".msh") {
			return nil
		}
		rel, err := filepath.Rel(meshDir, path)
		if err != nil {
			return err
		}
		items = append(items, Item{Path: filepath.ToSlash(rel), Type: msh.TypeFromName(d.Name())})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "batch: scan %s", meshDir)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// Run processes all items using a worker pool.
func Run(cfg Config, items []Item) []Result {
	total := len(items)
	results := make([]Result, total)
	var processed atomic.Int64
	workers := max(cfg.Workers, 1)

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						cfg.Progress("  [%d/%d] %.1f files/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	p := &processor{cfg: cfg}
	itemChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range itemChan {
				results[idx] = p.process(items[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range items {
		itemChan <- i
	}
	close(itemChan)

	wg.Wait()
	close(done)

	return results
}

type processor struct {
	cfg     Config
	written sync.Map // webp path → struct{}
}

// GLBPath returns the output path of the converted item.
func GLBPath(outputDir string, it Item) string {
	rel := strings.TrimSuffix(it.Path, filepath.Ext(it.Path)) + ".glb"
	return filepath.Join(outputDir, filepath.FromSlash(rel))
}

func (p *processor) process(it Item) Result {
	res := Result{Item: it}
	fail := func(err error) Result {
		res.Error = err.Error()
		return res
	}

	data, err := os.ReadFile(filepath.Join(p.cfg.MeshDir, filepath.FromSlash(it.Path)))
	if err != nil {
		return fail(err)
	}
	doc, err := msh.DecodeBytes(data, msh.DecodeOptions{Charmap: p.cfg.Charmap, MeshType: it.Type})
	if err != nil {
		return fail(err)
	}
	res.Warnings = append(res.Warnings, doc.Warnings...)
	res.Groups = len(doc.Groups)
	for _, g := range doc.Groups {
		res.Meshes += len(g.Meshes)
	}
	if doc.Skeleton != nil {
		res.Bones = len(doc.Skeleton.Bones)
	}

	name := strings.TrimSuffix(filepath.Base(it.Path), filepath.Ext(it.Path))
	gdoc, warnings, err := gltfexport.Export(doc, gltfexport.Options{
		Name:     name,
		Textures: p.cfg.Textures,
		Controls: p.cfg.Controls,
	})
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		return fail(err)
	}
	if err := gltfexport.SaveGLB(GLBPath(p.cfg.OutputDir, it), gdoc); err != nil {
		return fail(err)
	}

	if p.cfg.WebPTextures && p.cfg.Textures != nil {
		for _, img := range doc.Images {
			if err := p.saveWebP(img); err != nil {
				res.Warnings = append(res.Warnings, err.Error())
			}
		}
	}

	res.Success = true
	return res
}

// saveWebP writes each texture once per run, however many meshes use it.
func (p *processor) saveWebP(name string) error {
	path := filepath.Join(p.cfg.OutputDir, "textures", texture.WebPName(name))
	if _, loaded := p.written.LoadOrStore(path, struct{}{}); loaded {
		return nil
	}
	img := p.cfg.Textures.Resolve(name)
	if img == nil {
		return errors.Errorf("texture not found: %s", name)
	}
	return texture.SaveWebP(path, img)
}
