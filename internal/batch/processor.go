// Package batch converts every matching file in a directory between scene
// formats, one fresh scene per file, with a worker pool and a JSON manifest
// of the outcomes.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
)

// Config holds the shared settings for a batch run.
type Config struct {
	InputDir  string
	OutputDir string
	// SourceExt and TargetExt select the conversion, dot included. Empty
	// values mean ".glb" to ".obj".
	SourceExt string
	TargetExt string
	// Options is handed to the exporter for every file.
	Options formats.Options
	Workers int
}

// Result holds the outcome of converting one file.
type Result struct {
	Name    string
	Output  string
	Success bool
	Error   string
}

func (c Config) withDefaults() Config {
	if c.SourceExt == "" {
		c.SourceExt = ".glb"
	}
	if c.TargetExt == "" {
		c.TargetExt = ".obj"
	}
	if !strings.HasPrefix(c.SourceExt, ".") {
		c.SourceExt = "." + c.SourceExt
	}
	if !strings.HasPrefix(c.TargetExt, ".") {
		c.TargetExt = "." + c.TargetExt
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// Scan lists the files in dir whose names end in ext, matched
// case-insensitively, in name order. Subdirectories are not descended into.
func Scan(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: scan: %w", err)
	}
	lext := strings.ToLower(ext)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), lext) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Run converts every matching file using a worker pool. A file that fails
// leaves its error in the Result and the run carries on; only setup failures
// abort the whole run.
func Run(cfg Config) ([]Result, error) {
	cfg = cfg.withDefaults()
	names, err := Scan(cfg.InputDir, cfg.SourceExt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("batch: output dir: %w", err)
	}

	total := len(names)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
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
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f files/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = convertFile(cfg, names[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range names {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results, nil
}

// convertFile imports one source file into a fresh scene and exports it under
// the same base name with the target extension.
func convertFile(cfg Config, name string) Result {
	base := name[:len(name)-len(cfg.SourceExt)]
	res := Result{Name: name, Output: base + cfg.TargetExt}

	imp, err := formats.ImporterFor(name)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	exp, err := formats.ExporterFor(res.Output)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	sc := scene.New()
	if err := imp.Import(sc, filepath.Join(cfg.InputDir, name)); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := exp.Export(sc, filepath.Join(cfg.OutputDir, res.Output), cfg.Options); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	return res
}
