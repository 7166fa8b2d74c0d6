package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lockwatch-dev/lockwatch/internal/config"
	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/command"
	"github.com/lockwatch-dev/lockwatch/pkg/controlapi"
	"github.com/lockwatch-dev/lockwatch/pkg/engine"
	"github.com/lockwatch-dev/lockwatch/pkg/metrics"
	"github.com/lockwatch-dev/lockwatch/pkg/mirror"
	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

// exitNeedEndpoint tells the caller to obtain a new endpoint.
const exitNeedEndpoint = 2

type monitorOptions struct {
	configPath string
	host       string
	port       int
	retry      string
	retryDelay string
	handshake  bool
	api        string
	logLevel   string
	logFormat  string
}

func monitorCmd() *cobra.Command {
	var opts monitorOptions

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Connect to a PC and watch it",
		Long: `Connect to the monitoring server on a PC and print its status.

Type "lock" and press Enter to lock the PC, or "quit" to exit.
When the retry mode is give-up and the connection fails, lockwatch
exits with status 2 so a wrapper can ask for a new address.

Examples:
  lockwatch monitor --host 192.168.1.20
  lockwatch monitor --host pc.local --retry give-up
  lockwatch monitor --config lockwatch.yaml --api ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadMonitorConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMonitor(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./lockwatch.json if present)")
	flags.StringVarP(&opts.host, "host", "H", "", "Address of the PC")
	flags.IntVarP(&opts.port, "port", "p", engine.DefaultPort, "WebSocket port on the PC")
	flags.StringVar(&opts.retry, "retry", config.RetryModeForever, "Retry mode: forever or give-up")
	flags.StringVar(&opts.retryDelay, "retry-delay", engine.DefaultRetryDelay.String(), "Pause between reconnect attempts")
	flags.BoolVar(&opts.handshake, "handshake", false, "Send the PHONE_CLIENT greeting after connecting")
	flags.StringVar(&opts.api, "api", config.DefaultAPIAddress, "Control API listen address (empty disables)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

// loadMonitorConfig reads the config file, then applies every flag the user
// set explicitly.
func loadMonitorConfig(opts monitorOptions, flags *pflag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(".")
		if lwerrors.CodeOf(err) == "E101" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = opts.host
		case "port":
			cfg.Port = opts.port
		case "retry":
			cfg.Retry.Mode = opts.retry
		case "retry-delay":
			cfg.Retry.Delay = opts.retryDelay
		case "handshake":
			cfg.Handshake = opts.handshake
		case "api":
			cfg.API.Address = opts.api
		case "log-level":
			cfg.Log.Level = opts.logLevel
		case "log-format":
			cfg.Log.Format = opts.logFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runMonitor(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	logger := newLogger(cfg, errOut)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	broker := publish.NewBroker()
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.WithRegistry(registry))

	eng := engine.New(cfg.Endpoint(), cfg.Policy(),
		engine.WithPublisher(broker),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithHandshake(cfg.Handshake),
	)
	defer eng.Close()

	gateway := command.New(eng, command.WithLogger(logger))

	printBanner(out)
	info(out, "%s", title)
	info(out, "Watching %s (retry: %s every %s)", eng.Endpoint().URL(), cfg.Retry.Mode, eng.Policy().Delay)
	fmt.Fprintln(out)

	var wg sync.WaitGroup
	var outMu sync.Mutex
	printf := func(fn func(io.Writer, string, ...any), format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fn(out, format, args...)
	}

	// Status lines.
	statuses, cancelStatuses := broker.SubscribeStatus()
	defer cancelStatuses()
	printStatus := func(text string) {
		if text == engine.StatusIntruder || text == engine.StatusFailed {
			printf(warn, "%s", text)
		} else {
			printf(info, "%s", text)
		}
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				// The failure status is published just before the failure
				// that cancels ctx; print it if it is still pending.
				select {
				case text, ok := <-statuses:
					if ok {
						printStatus(text)
					}
				default:
				}
				return
			case text, ok := <-statuses:
				if !ok {
					return
				}
				printStatus(text)
			}
		}
	}()

	// Terminal failure ends the run.
	failures, cancelFailures := broker.SubscribeFailure()
	defer cancelFailures()
	var failed bool
	var failedMu sync.Mutex
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
		case _, ok := <-failures:
			if ok {
				failedMu.Lock()
				failed = true
				failedMu.Unlock()
				cancel()
			}
		}
	}()

	if cfg.API.Address != "" {
		view := controlapi.NewView(broker)
		defer view.Close()

		var gatherer prometheus.Gatherer
		if cfg.Metrics {
			gatherer = registry
		}
		api := controlapi.New(controlapi.Config{
			Address:  cfg.API.Address,
			Engine:   eng,
			Gateway:  gateway,
			View:     view,
			Gatherer: gatherer,
			Shutdown: cancel,
			Logger:   logger,
		})
		ln, err := api.Listen()
		if err != nil {
			return lwerrors.New("E301").
				WithDetail("Cannot listen on " + cfg.API.Address).
				WithSuggestion("Pick another address with --api, or --api \"\" to disable").
				Wrap(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.Serve(ctx, ln); err != nil {
				logger.Error("control API error", "error", err)
			}
		}()
		printf(info, "Control API on http://%s", ln.Addr())
	}

	if cfg.Mirror.Enabled() {
		mc := cfg.Mirror
		client := mirror.NewS3Client(mirror.Config{
			Bucket:    mc.Bucket,
			Key:       mc.Key,
			Region:    mc.Region,
			Endpoint:  mc.Endpoint,
			PathStyle: mc.PathStyle,
		})
		mr := mirror.New(client, mc.Bucket, mc.Key, mirror.WithLogger(logger))
		wg.Add(1)
		go func() {
			defer wg.Done()
			mr.Run(ctx, broker)
		}()
		printf(info, "Mirroring latest snapshot to s3://%s/%s", mc.Bucket, mc.Key)
	}

	// Console commands. The reader goroutine is not joined: a blocking read
	// on stdin cannot be interrupted.
	go readConsole(ctx, in, gateway, cancel, func(format string, args ...any) {
		printf(info, format, args...)
	})

	eng.Connect()
	<-ctx.Done()

	eng.Close()
	cancel()
	wg.Wait()

	failedMu.Lock()
	defer failedMu.Unlock()
	if failed {
		return &exitError{
			code:   exitNeedEndpoint,
			reason: "Could not connect to " + eng.Endpoint().String() + "; run again with a new --host",
		}
	}
	success(out, "Stopped")
	return nil
}

// readConsole handles operator input lines until EOF or quit.
func readConsole(ctx context.Context, in io.Reader, gateway *command.Gateway, quit func(), say func(string, ...any)) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			quit()
			return
		case "help", "?":
			say("Commands: %s, quit", strings.Join(command.Names(), ", "))
			continue
		}

		sent, err := gateway.Issue(line)
		var le *lwerrors.LockwatchError
		switch {
		case errors.As(err, &le):
			say("%s", le.FormatCompact())
		case err != nil:
			say("%s", err)
		case !sent:
			say("%s", lwerrors.New("E202").FormatCompact())
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		say("console error: %s", err)
	}
}
