package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/ncruces/zenity"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/game"
	"github.com/iburimskiy/synapse-field/internal/logging"
	"github.com/iburimskiy/synapse-field/internal/observability"
	"github.com/iburimskiy/synapse-field/internal/sim"
	"github.com/iburimskiy/synapse-field/internal/term"
)

const title = "Synapse Field"

func main() {
	settings, err := config.Load(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, log); err != nil {
		log.Error(ctx, "run failed", logging.Err(err))
		if settings.Backend == config.BackendWindow {
			_ = zenity.Error(err.Error(), zenity.Title(title), zenity.ErrorIcon)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, settings config.Settings, log logging.Logger) error {
	var metrics *observability.FrameCollector
	if settings.MetricsAddr != "" {
		collector, err := observability.NewFrameCollector(nil)
		if err != nil {
			log.Warn(ctx, "metrics disabled", logging.Err(err))
		} else if srv, err := observability.ServeMetrics(settings.MetricsAddr, collector, log); err != nil {
			log.Warn(ctx, "metrics disabled", logging.String("addr", settings.MetricsAddr), logging.Err(err))
		} else {
			metrics = collector
			defer srv.Shutdown(context.Background())
		}
	}

	// The terminal backend draws on stdout.
	var spans io.Writer = os.Stdout
	if settings.Backend == config.BackendTerminal {
		spans = os.Stderr
	}
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Exporter:    settings.Tracing,
		Endpoint:    settings.OTLPEndpoint,
		ServiceName: "synapse-field",
		SampleRatio: settings.TraceRatio,
		Output:      spans,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	opts := []sim.Option{sim.WithLogger(log), sim.WithSeed(settings.Seed)}

	var chime *game.Chime
	if settings.Sound {
		chime = game.NewChime(log)
		if settings.ChimeFile != "" {
			if err := chime.LoadSample(settings.ChimeFile); err != nil {
				log.Warn(ctx, "using built-in chime", logging.Err(err))
			}
		}
		if err := chime.Start(); err != nil {
			log.Warn(ctx, "sound disabled", logging.Err(err))
			chime = nil
		} else {
			defer chime.Close()
		}
	}

	switch settings.Backend {
	case config.BackendTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		cols, rows := screen.Size()
		s := sim.New(cols*config.CellWidth, rows*config.CellHeight, opts...)
		topts := term.Options{
			Night:   settings.Night,
			Metrics: metrics,
			Tracer:  observability.NewFrameTracer(nil, term.Backend),
			Log:     log,
		}
		if chime != nil {
			topts.Chime = chime
		}
		return term.NewRunner(screen, s, topts).Run(ctx)

	default:
		s := sim.New(settings.Width, settings.Height, opts...)
		g, err := game.New(ctx, s, game.Options{
			Night:   settings.Night,
			Chime:   chime,
			Metrics: metrics,
			Tracer:  observability.NewFrameTracer(nil, game.Backend),
			Log:     log,
		})
		if err != nil {
			return err
		}
		return game.Run(g, title)
	}
}
