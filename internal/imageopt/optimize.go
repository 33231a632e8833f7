// file: internal/imageopt/optimize.go
// version: 1.1.0
// guid: 0c5d9e72-8f46-4a1b-b3e7-5a2f6c8d1e93

// Package imageopt downsizes saved cover art for the site.
package imageopt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/fileops"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

var coverFile = regexp.MustCompile(`(?i)\.(jpe?g|png)$`)

// ErrOutputCollision is returned when two sources would write the same
// <name>.jpg output.
var ErrOutputCollision = errors.New("covers share an output name")

// Options controls an optimization run.
type Options struct {
	MaxSize int
	Quality int
	// OutDir receives <name>.jpg files. Empty writes next to the sources.
	OutDir  string
	Workers int
	Log     *logger.Logger
}

// DefaultOptions fits covers inside 800x800 at JPEG quality 80.
func DefaultOptions() Options {
	return Options{MaxSize: 800, Quality: 80, Workers: 4}
}

// FileResult describes one processed cover.
type FileResult struct {
	Source  string
	Output  string
	Width   int
	Height  int
	Resized bool
	Err     error
}

// Report summarizes a run. Files holds the covers that were processed,
// sorted by source; a canceled run leaves the rest out.
type Report struct {
	Files []FileResult
}

// Converted counts files written.
func (r *Report) Converted() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Output != "" {
			n++
		}
	}
	return n
}

// Failed counts files that could not be processed.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Fit scales w x h to fit inside limit x limit keeping the aspect ratio.
// Images already inside the box are left as is.
func Fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// Resize decodes data, fits it inside maxSize and encodes it as JPEG.
func Resize(data []byte, maxSize, quality int) ([]byte, image.Point, bool, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, false, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := Fit(bounds.Dx(), bounds.Dy(), maxSize)
	resized := w != bounds.Dx() || h != bounds.Dy()

	var out image.Image = img
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, image.Point{}, false, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), image.Pt(w, h), resized, nil
}

// outputBase is the name a source is written under, without extension.
func outputBase(src string) string {
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
}

// ListCovers returns the JPG and PNG files in dir, sorted. Sources that
// would produce the same output file, such as x.jpg and x.png, fail with
// ErrOutputCollision.
func ListCovers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read covers directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !coverFile.MatchString(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	byOutput := make(map[string][]string, len(files))
	for _, f := range files {
		byOutput[outputBase(f)] = append(byOutput[outputBase(f)], filepath.Base(f))
	}
	var clashes []string
	for base, srcs := range byOutput {
		if len(srcs) > 1 {
			clashes = append(clashes, fmt.Sprintf("%s.jpg <- %s", base, strings.Join(srcs, ", ")))
		}
	}
	if len(clashes) > 0 {
		sort.Strings(clashes)
		return nil, fmt.Errorf("%w: %s", ErrOutputCollision, strings.Join(clashes, "; "))
	}
	return files, nil
}

// Optimize resizes every cover in dir. Per-file failures are reported, not
// returned; only cancellation and directory errors fail the run.
func Optimize(ctx context.Context, dir string, opts Options) (*Report, error) {
	if opts.MaxSize <= 0 || opts.Quality < 1 || opts.Quality > 100 {
		return nil, fmt.Errorf("invalid options: max size %d, quality %d", opts.MaxSize, opts.Quality)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = dir
	}

	files, err := ListCovers(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := &Report{Files: make([]FileResult, 0, len(files))}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, src := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := optimizeFile(src, outDir, opts)
			if res.Err != nil {
				log.Warnf("optimize %s: %v", filepath.Base(src), res.Err)
			} else {
				log.Debugf("optimized %s to %dx%d", filepath.Base(src), res.Width, res.Height)
			}
			mu.Lock()
			report.Files = append(report.Files, res)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].Source < report.Files[j].Source })
	return report, err
}

func optimizeFile(src, outDir string, opts Options) FileResult {
	res := FileResult{Source: src, Output: filepath.Join(outDir, outputBase(src)+".jpg")}

	data, err := os.ReadFile(src)
	if err != nil {
		res.Err = fmt.Errorf("failed to read cover: %w", err)
		return res
	}
	out, size, resized, err := Resize(data, opts.MaxSize, opts.Quality)
	if err != nil {
		res.Err = err
		return res
	}
	if err := fileops.WriteFileAtomic(res.Output, out, 0o644); err != nil {
		res.Err = err
		return res
	}
	res.Width, res.Height, res.Resized = size.X, size.Y, resized
	return res
}
