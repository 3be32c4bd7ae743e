package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/engine"
	"github.com/lessucettes/chatmod/internal/store"
)

var version = "dev"

const maxLineSize = 1 << 20

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "./config.toml", "Path to the configuration file.")
	useDefaults := flag.Bool("use-defaults", false, "Run with internal defaults if the config file is missing.")
	validateConfig := flag.Bool("validate", false, "Validate the configuration file and exit.")
	dryRun := flag.Bool("dry-run", false, "Log decisions without reporting actions to the enforcer.")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *validateConfig {
		if err := validateConfiguration(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is INVALID: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is VALID.")
		return
	}
	if err := runApp(*configPath, *useDefaults, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		os.Exit(1)
	}
}

func openStore(cfg *config.DBConfig) (store.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	db, err := store.NewBadgerStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func runApp(configPath string, useDefaults bool, dryRun bool) error {
	cfg, defaultsUsed, err := config.Load(configPath, useDefaults)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level.ToSlogLevel()}))
	slog.SetDefault(logger)
	if dryRun {
		slog.Warn("Moderator is running in DRY-RUN mode.")
	}
	slog.Info("Chat moderator starting up", "version", version, "config_path", configPath, "using_defaults", defaultsUsed)

	db, err := openStore(&cfg.DB)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	eng, err := engine.New(engine.WithConfig(cfg))
	if err != nil {
		return err
	}
	host := NewHost(eng, db, dryRun, cfg.DB.ArchiveTTL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := host.Restore(ctx); err != nil {
		slog.Warn("Could not restore saved settings, keeping configured ones", "error", err)
	}

	var reloadMu sync.Mutex
	activePreset := cfg.Moderation.Preset
	onReload := func(newCfg *config.Config) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		eng.SetTunables(newCfg)
		if p := newCfg.Moderation.Preset; p != "" && p != activePreset {
			if _, err := eng.ApplyPreset(p); err != nil {
				slog.Error("Failed to apply preset from reloaded config", "preset", p, "error", err)
				return
			}
			host.persistSettings(ctx)
		}
		activePreset = newCfg.Moderation.Preset
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := config.NewWatcher(configPath, 0, onReload).Run(gctx); err != nil {
			slog.Warn("Configuration hot reload is disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		// End of input stops the whole process.
		defer cancel()
		return processEvents(gctx, os.Stdin, os.Stdout, host)
	})
	return g.Wait()
}

func processEvents(ctx context.Context, r io.Reader, w io.Writer, host *Host) error {
	linesChan := make(chan []byte)
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			lineCopy := make([]byte, len(scanner.Bytes()))
			copy(lineCopy, scanner.Bytes())
			select {
			case linesChan <- lineCopy:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errChan <- err
		}
		close(linesChan)
	}()

	slog.Info("Ready to process events from stdin...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-linesChan:
			if !ok {
				if err := <-errChan; err != nil {
					return err
				}
				slog.Info("Input stream closed, shutting down.")
				return nil
			}
			if len(line) == 0 {
				continue
			}

			var req Request
			if err := sonic.Unmarshal(line, &req); err != nil {
				slog.Warn("Failed to decode request JSON", "error", err, "raw_line_prefix", prefix(line, 128))
				continue
			}

			resp := host.Handle(ctx, &req)
			if !resp.OK {
				slog.Warn("Request failed", "type", req.Type, "error", resp.Error)
			}
			if err := writeResponse(w, resp); err != nil {
				if errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE) {
					return nil
				}
				slog.Error("Failed to write response to stdout", "error", err)
			}
		}
	}
}

func writeResponse(w io.Writer, resp Response) error {
	out, err := sonic.ConfigStd.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func prefix(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func validateConfiguration(configPath string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	fmt.Printf("Validating configuration file: %s\n", configPath)
	cfg, _, err := config.Load(configPath, false)
	if err != nil {
		return err
	}
	if _, err := engine.New(engine.WithConfig(cfg)); err != nil {
		return err
	}
	return nil
}
