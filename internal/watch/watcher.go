// Package watch converts documents dropped into a hot folder.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tomgalvin.uk/zplconv/internal/config"
	"tomgalvin.uk/zplconv/internal/convert"
	"tomgalvin.uk/zplconv/internal/printer"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/zpl"
)

const DefaultDebounce = 500 * time.Millisecond

type Watcher struct {
	Config  config.WatchConfig
	Tools   render.Tools
	Options convert.Options
	// Printer receives every converted document when Config.Print is set.
	Printer  printer.Connection
	Logger   *slog.Logger
	Debounce time.Duration

	printLock sync.Mutex
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default().With("src", "watch")
	}
	return w.Logger
}

func (w *Watcher) outputDir() string {
	if w.Config.Output == "" {
		return w.Config.Input
	}
	return w.Config.Output
}

// Run converts files already waiting in the input directory, then every file
// created or changed there until ctx is done. In-flight conversions finish
// before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Config.Input == "" {
		return fmt.Errorf("No input directory to watch")
	}
	if w.Config.Print && w.Printer == nil {
		return printer.ErrNoPrinter
	}
	if err := w.Options.Validate(); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Couldn't create watcher:\n%w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Config.Input); err != nil {
		return fmt.Errorf("Couldn't watch %s:\n%w", w.Config.Input, err)
	}
	w.logger().Info("Watching", "input", w.Config.Input, "output", w.outputDir())

	workers := w.Config.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	locks := newPathLocker()
	var wg sync.WaitGroup

	submit := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			locks.Lock(path)
			defer locks.Unlock(path)
			if upToDate(w.outputDir(), path) {
				return
			}
			w.process(ctx, path)
		}()
	}

	delay := w.Debounce
	if delay == 0 {
		delay = DefaultDebounce
	}
	db := newDebouncer(delay, submit)
	defer db.stop()

	w.initialScan(submit)
	if interval := w.Config.PollDuration(); interval > 0 {
		go w.pollLoop(ctx, interval, db.trigger)
	}
	w.eventLoop(ctx, fw, db)

	w.logger().Info("Waiting for in-flight conversions...")
	db.stop()
	wg.Wait()
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher, db *debouncer) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !convertible(ev.Name) {
				continue
			}
			if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
				continue
			}
			db.trigger(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger().Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) initialScan(submit func(string)) {
	entries, err := os.ReadDir(w.Config.Input)
	if err != nil {
		w.logger().Error("Couldn't scan input directory", "error", err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(w.Config.Input, e.Name())
		if !e.IsDir() && convertible(path) {
			submit(path)
		}
	}
}

// pollLoop rescans the input directory for filesystems that don't deliver
// change events.
func (w *Watcher) pollLoop(ctx context.Context, interval time.Duration, onChanged func(string)) {
	mtimes := make(map[string]time.Time)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		entries, err := os.ReadDir(w.Config.Input)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(w.Config.Input, e.Name())
			if e.IsDir() || !convertible(path) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if prev, ok := mtimes[path]; !ok || !info.ModTime().Equal(prev) {
				mtimes[path] = info.ModTime()
				onChanged(path)
			}
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	start := time.Now()
	docs, err := ConvertFile(ctx, w.Tools, w.Options, path)
	if err != nil {
		w.logger().Error("Couldn't convert file", "file", path, "error", err)
		return
	}
	outputs := OutputPaths(w.outputDir(), path, len(docs))
	if err := WriteDocuments(outputs, docs); err != nil {
		w.logger().Error("Couldn't write output", "file", path, "error", err)
		return
	}
	w.logger().Info("Converted file",
		"file", filepath.Base(path),
		"documents", len(docs),
		"elapsed", time.Since(start),
	)
	if w.Config.Print {
		w.print(path, docs)
	}
}

func (w *Watcher) print(path string, docs []zpl.Document) {
	w.printLock.Lock()
	defer w.printLock.Unlock()
	for _, doc := range docs {
		if err := printer.Send(w.Printer, []byte(doc.String())); err != nil {
			w.logger().Error("Couldn't print file", "file", path, "error", err)
			return
		}
	}
}
