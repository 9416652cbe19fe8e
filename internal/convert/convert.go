// Package convert runs rasterized pages through the geometry, tone reduction,
// packing and encoding steps and assembles the resulting labels into documents.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"tomgalvin.uk/zplconv/internal/bitmap"
	"tomgalvin.uk/zplconv/internal/geometry"
	"tomgalvin.uk/zplconv/internal/zpl"
)

// Convert turns every page into a label. With opts.SplitPages each page gets
// its own document, otherwise a single document holds every label. Pages are
// converted in parallel but always come back in input order. If any page
// fails nothing is returned.
func Convert(ctx context.Context, pages []bitmap.RasterImage, opts Options) ([]zpl.Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	labels := make([]string, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			label, err := convertPage(i, page, opts)
			if err != nil {
				return err
			}
			labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !opts.SplitPages {
		return []zpl.Document{{Labels: labels}}, nil
	}
	docs := make([]zpl.Document, len(labels))
	for i, label := range labels {
		docs[i] = zpl.Document{Labels: []string{label}}
	}
	return docs, nil
}

// ConvertPage converts a single page into a label.
func ConvertPage(page bitmap.RasterImage, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return convertPage(0, page, opts)
}

func convertPage(index int, page bitmap.RasterImage, opts Options) (label string, err error) {
	stage := StageGeometry
	defer func() {
		if r := recover(); r != nil {
			err = &PageError{Page: index, Stage: stage, Err: fmt.Errorf("%w: %v", ErrEncodingFailed, r)}
		}
	}()
	fail := func(err error) (string, error) {
		return "", &PageError{Page: index, Stage: stage, Err: err}
	}
	start := time.Now()

	if page.Image == nil {
		return fail(fmt.Errorf("%w: page has no image", geometry.ErrInvalidGeometry))
	}
	width, height, err := geometry.Resolve(geometry.Source{
		Width:  page.Width(),
		Height: page.Height(),
		DPI:    page.DPI,
	}, opts.target())
	if err != nil {
		return fail(err)
	}

	stage = StageTone
	mono, err := bitmap.Reduce(page.Image, width, height, opts.tone())
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrEncodingFailed, err))
	}

	stage = StagePack
	packed := bitmap.PackBitmap(mono)

	stage = StageEncode
	label, err = opts.Encoder().Label(packed)
	if err != nil {
		if !errors.Is(err, zpl.ErrUnsupportedFormat) && !errors.Is(err, zpl.ErrCompressionInputMisaligned) {
			err = fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
		return fail(err)
	}

	slog.Debug("Converted page",
		"page", index,
		"width", width,
		"height", height,
		"format", opts.Format,
		"elapsed", time.Since(start),
	)
	return label, nil
}
