package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"barsheet/config"
	"barsheet/dsl"
	"barsheet/export"
	"barsheet/layout"
	"barsheet/loader"
	"barsheet/renderer"
	canvasrenderer "barsheet/renderer/canvas"
	"barsheet/resolve"
	"barsheet/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "barsheet",
		Usage: "compose repeated barcode images into print-ready A4 sheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			renderCommand(),
			serveCommand(),
			lookupCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "barsheet: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if !cmd.Bool("verbose") {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc.DisableStacktrace = true
	log, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("prepare logging: %w", err)
	}
	return cfg, log, nil
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "render a sheet definition to a PNG",
		ArgsUsage: "<sheet file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: export.Filename, Usage: "output path"},
			&cli.StringFlag{Name: "data", Usage: "JSON data bound to ${path} placeholders"},
			&cli.StringFlag{Name: "resolver", Usage: "resolver base URL (overrides configuration)"},
			&cli.BoolFlag{Name: "preview", Usage: "render the viewport-scaled preview instead of the full-resolution export"},
			&cli.StringFlag{Name: "debug", Usage: "write the computed layout plan as JSON to this path"},
		},
		Action: runRender,
	}
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one sheet file argument")
	}
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	var data any
	if raw := cmd.String("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("parse data JSON: %w", err)
		}
	}

	file, err := os.Open(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("open sheet file: %w", err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("parse sheet file: %w", err)
	}
	groups, err := layout.FromSheet(doc, data)
	if err != nil {
		return err
	}

	base := cfg.Resolver
	if v := cmd.String("resolver"); v != "" {
		base = v
	}
	hc := &http.Client{Timeout: cfg.HTTPTimeout.Std()}
	if err := resolveAll(ctx, groups, resolve.New(base, hc), log); err != nil {
		return err
	}

	ldr := loader.New(hc)
	rend := canvasrenderer.New()

	if path := cmd.String("debug"); path != "" {
		plan, err := layout.Compose(ctx, groups, layout.BuildOptions{Loader: ldr})
		if err != nil {
			return err
		}
		if err := layout.WriteDebugJSON(plan, path); err != nil {
			return fmt.Errorf("write layout debug JSON: %w", err)
		}
	}

	out := cmd.String("out")
	if cmd.Bool("preview") {
		target := renderer.PreviewTarget(cfg.Preview.BoxWidth, cfg.Preview.BoxHeight, cfg.Preview.PixelRatio)
		data, err := renderToPNG(ctx, groups, ldr, rend, target)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		log.Info("preview written", zap.String("path", out), zap.Int("width", target.WidthPx), zap.Int("height", target.HeightPx))
		return nil
	}

	payload, err := export.Sheet(ctx, groups, ldr, rend)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	log.Info("sheet exported", zap.String("path", out), zap.Int("bytes", len(payload)))
	return nil
}

// resolveAll validates every group's image reference up front. Resolution
// failures are scoped per group but exporting a sheet with any invalid group
// is prevented, so all failures are collected and reported together.
func resolveAll(ctx context.Context, groups []layout.Group, client *resolve.Client, log *zap.Logger) error {
	var errs error
	for i := range groups {
		resolved, err := client.Resolve(ctx, groups[i].ImageRef)
		if err != nil {
			groups[i].Validation = layout.ValidationInvalid
			errs = multierr.Append(errs, err)
			continue
		}
		groups[i].ResolvedURL = resolved
		groups[i].Validation = layout.ValidationValid
		log.Debug("resolved group", zap.Int("group", i+1), zap.String("url", layout.TruncateURL(resolved)))
	}
	return errs
}

func renderToPNG(ctx context.Context, groups []layout.Group, ldr layout.ImageLoader, rend renderer.Renderer, target renderer.Target) ([]byte, error) {
	plan, err := layout.Compose(ctx, groups, layout.BuildOptions{Loader: ldr})
	if err != nil {
		return nil, err
	}
	img, err := rend.Render(plan, target)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode preview PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the resolver endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "bind address (overrides configuration)"},
			&cli.StringFlag{Name: "db", Usage: "lookup database path (overrides configuration)"},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	listen := cfg.Listen
	if v := cmd.String("listen"); v != "" {
		listen = v
	}
	dbPath := cfg.Database
	if v := cmd.String("db"); v != "" {
		dbPath = v
	}

	store, err := server.OpenStore(dbPath)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    listen,
		Handler: server.New(store, log).Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("resolver listening", zap.String("addr", listen), zap.String("db", dbPath))

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return multierr.Append(err, store.Close())
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:  "lookup",
		Usage: "manage the identifier-to-URL lookup store",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "add or replace a mapping",
				ArgsUsage: "<number> <image URL>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "lookup database path (overrides configuration)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return fmt.Errorf("expected <number> <image URL>")
					}
					return withStore(cmd, func(store *server.Store) error {
						return store.Put(cmd.Args().Get(0), cmd.Args().Get(1))
					})
				},
			},
			{
				Name:  "list",
				Usage: "print all mappings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "lookup database path (overrides configuration)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(cmd, func(store *server.Store) error {
						entries, err := store.List()
						if err != nil {
							return err
						}
						for _, e := range entries {
							fmt.Printf("%s\t%s\n", e.Number, e.ImageURL)
						}
						return nil
					})
				},
			},
		},
	}
}

func withStore(cmd *cli.Command, fn func(*server.Store) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	dbPath := cfg.Database
	if v := cmd.String("db"); v != "" {
		dbPath = v
	}
	store, err := server.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
