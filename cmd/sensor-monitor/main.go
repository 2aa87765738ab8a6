package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lowaak/smart-trainer/sensor-core/internal/capture"
	"github.com/lowaak/smart-trainer/sensor-core/internal/config"
	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/fec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/sensor-core/internal/logging"
	"github.com/lowaak/smart-trainer/sensor-core/internal/sensors"
)

func main() {
	cfg, err := config.Load("sensor-monitor", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.Capture.Dump != "" {
		if err := dumpCapture(cfg.Capture.Dump, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, closer := logging.New(logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Stderr:     cfg.Log.Stderr,
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Printf("sensor-monitor: %v", err)
		closer.Close()
		os.Exit(1)
	}
	logger.Printf("sensor-monitor: stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.close()

	transport := src.transport
	if cfg.Capture.File != "" {
		rec, err := capture.NewFileRecorder(transport, cfg.Capture.File, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		transport = rec
	}

	registry := dispatch.NewRegistry(logger)
	sensors.RegisterRoutes(registry)
	fec.RegisterRoutes(registry)
	unlisten := registry.OnFailure(func(f dispatch.Failure) {
		logger.Printf("sensor-monitor: dropped %s frame % X: %v", f.Kind, f.Frame.Data, f.Err)
	})
	defer unlisten()

	m := newMonitor(transport, registry, logger)
	defer m.close()
	if err := m.enable(cfg); err != nil {
		return err
	}
	defer m.disable()

	if m.trainer != nil {
		go_func_utils.SafeGoErr(logger, "Trainer", func() error {
			return sendTrainerCommands(ctx, m.trainer, cfg.Trainer, logger)
		}, nil)
	}
	if src.run != nil {
		go_func_utils.SafeGoErr(logger, "Source", func() error {
			if err := src.run(ctx); ctx.Err() == nil {
				return err
			}
			return nil
		}, nil)
	}

	return m.loop(ctx)
}

// dumpCapture prints one line per record of the capture at path
func dumpCapture(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := capture.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read capture %s: %w", path, err)
	}
	return capture.Dump(w, records)
}
