package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tomgalvin.uk/zplconv/internal/convert"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/zpl"
)

// ConvertFile reads path, picks a rasterizer by its extension and converts
// every page with opts.
func ConvertFile(ctx context.Context, tools render.Tools, opts convert.Options, path string) ([]zpl.Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rasterizer, err := tools.ForType(render.TypeOf(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := rasterizer.Render(ctx, data, float64(opts.DPI))
	if err != nil {
		return nil, fmt.Errorf("Couldn't render %s:\n%w", filepath.Base(path), err)
	}
	return convert.Convert(ctx, pages, opts)
}

// OutputPaths names the files docs converted from input are written to in
// dir: <name>.zpl for a single document, <name>-pN.zpl otherwise.
func OutputPaths(dir, input string, docs int) []string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if docs == 1 {
		return []string{filepath.Join(dir, name+".zpl")}
	}
	paths := make([]string, docs)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s-p%d.zpl", name, i+1))
	}
	return paths
}

// WriteDocuments writes each document to its path, replacing any previous
// file whole.
func WriteDocuments(paths []string, docs []zpl.Document) error {
	for i, doc := range docs {
		if err := writeAtomic(paths[i], []byte(doc.String())); err != nil {
			return fmt.Errorf("Couldn't write %s:\n%w", paths[i], err)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".zplconv-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// convertible reports whether path is an input the watcher should pick up.
func convertible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(render.FileTypes, render.TypeOf(path))
}

// upToDate reports whether a converted file for input exists in dir and is
// newer than input.
func upToDate(dir, input string) bool {
	in, err := os.Stat(input)
	if err != nil {
		return false
	}
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	for _, pattern := range []string{name + ".zpl", name + "-p1.zpl"} {
		out, err := os.Stat(filepath.Join(dir, pattern))
		if err == nil && !out.ModTime().Before(in.ModTime()) {
			return true
		}
	}
	return false
}
