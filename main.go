package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tomgalvin.uk/zplconv/internal/config"
	"tomgalvin.uk/zplconv/internal/printer"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/server"
	"tomgalvin.uk/zplconv/internal/template"
	"tomgalvin.uk/zplconv/internal/watch"
)

func main() {
	configPath := flag.String("config", "zplconv.toml", "configuration file")
	envFile := flag.String("env", ".env", "file of environment variables to load")
	input := flag.String("i", "", "convert this file and exit")
	output := flag.String("o", "", "write the converted file here (a .zpl file or a directory; stdout if empty)")
	watchMode := flag.Bool("watch", false, "convert files dropped into the configured input directory")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tools := render.Tools{
		Pdftoppm:    cfg.Render.Pdftoppm,
		Wkhtmltopdf: cfg.Render.Wkhtmltopdf,
		TempDir:     cfg.Render.TempDir,
	}

	switch {
	case *input != "":
		err = convertOnce(ctx, cfg, tools, *input, *output)
	case *watchMode:
		err = runWatcher(ctx, cfg, tools)
	default:
		err = serve(ctx, cfg, tools)
	}
	if err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func connectPrinter(cfg config.PrinterConfig) printer.Connection {
	conn, err := printer.FromConfig(cfg)
	if err != nil {
		if !errors.Is(err, printer.ErrNoPrinter) {
			slog.Error("Couldn't set up printer", "error", err)
		}
		return nil
	}
	return conn
}

func convertOnce(ctx context.Context, cfg *config.Config, tools render.Tools, input, output string) error {
	docs, err := watch.ConvertFile(ctx, tools, cfg.Defaults, input)
	if err != nil {
		return err
	}
	if output == "" {
		for _, d := range docs {
			fmt.Print(d.String())
		}
		return nil
	}

	var paths []string
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		paths = watch.OutputPaths(output, input, len(docs))
	} else {
		// a file name; extra documents get -pN names beside it
		paths = watch.OutputPaths(filepath.Dir(output), output, len(docs))
		if len(docs) == 1 {
			paths[0] = output
		}
	}
	if err := watch.WriteDocuments(paths, docs); err != nil {
		return err
	}
	slog.Info("Converted file", "input", input, "outputs", paths)
	return nil
}

func runWatcher(ctx context.Context, cfg *config.Config, tools render.Tools) error {
	w := &watch.Watcher{
		Config:  cfg.Watch,
		Tools:   tools,
		Options: cfg.Defaults,
		Printer: connectPrinter(cfg.Printer),
		Logger:  slog.Default().With("src", "watch"),
	}
	return w.Run(ctx)
}

func serve(ctx context.Context, cfg *config.Config, tools render.Tools) error {
	r, err := template.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	s := &server.Server{
		Logger:             slog.Default().With("src", "server"),
		Config:             cfg.Server,
		Tools:              tools,
		Defaults:           cfg.Defaults,
		TemplateRepository: r,
		Printer:            connectPrinter(cfg.Printer),
	}
	return s.ListenAndServe(ctx)
}
