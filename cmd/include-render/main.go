package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	include "github.com/goliatone/go-include"
	"github.com/goliatone/go-include/pkg/config"
	"github.com/goliatone/go-include/pkg/partials"
	"github.com/goliatone/go-include/pkg/render"
)

// vars collects repeated -var key=value flags.
type vars map[string]any

func (v vars) String() string {
	parts := make([]string, 0, len(v))
	for key, value := range v {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	return strings.Join(parts, ",")
}

func (v vars) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	v[key] = value
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	partialsDir := flag.String("partials", "", "partials directory (overrides config)")
	templateName := flag.String("template", "", "template name or inline template content to render")
	output := flag.String("output", "", "output file (stdout if empty)")
	watch := flag.Bool("watch", false, "re-render when partials change")
	data := vars{}
	flag.Var(data, "var", "template variable as key=value (repeatable)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *partialsDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *watch {
		cfg.Watch = true
	}
	if strings.TrimSpace(*templateName) == "" {
		log.Fatalf("-template is required")
	}

	level, err := cfg.Level()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := include.New(cfg, render.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	if err := renderOnce(engine, *templateName, data, *output); err != nil {
		reportFailure(err)
		if !cfg.Watch {
			os.Exit(1)
		}
	}
	if !cfg.Watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("watching partials", slog.String("dir", cfg.PartialsDir))
	err = include.Watch(ctx, engine, cfg.PartialsDir,
		partials.WatchLogger(logger),
		partials.OnChange(func(name string) {
			logger.Info("partial changed", slog.String("partial", name))
			if err := renderOnce(engine, *templateName, data, *output); err != nil {
				reportFailure(err)
			}
		}),
	)
	if err != nil {
		log.Fatalf("Watch failed: %v", err)
	}
}

func loadConfig(path, partialsDir string) (config.Config, error) {
	cfg := config.DefaultConfig()
	if strings.TrimSpace(path) != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	cfg.LoadFromEnv()
	if strings.TrimSpace(partialsDir) != "" {
		cfg.PartialsDir = partialsDir
	}
	if cfg.PartialsDir == "" {
		return config.Config{}, errors.New("a partials directory is required (-partials, config or INCLUDE_PARTIALS_DIR)")
	}
	return cfg, nil
}

func renderOnce(r include.Renderer, name string, data vars, output string) error {
	out, err := r.Render(name, map[string]any(data))
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Rendered %s to %s\n", name, output)
		return nil
	}
	fmt.Println(out)
	return nil
}

func reportFailure(err error) {
	fmt.Fprintf(os.Stderr, "Failed to render: %v\n", err)
	trace := include.Trace(err)
	if len(trace) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "Include trace (innermost first):")
	for _, frame := range trace {
		fmt.Fprintf(os.Stderr, "  %s\n", frame)
	}
}
