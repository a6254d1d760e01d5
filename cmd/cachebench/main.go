// Command cachebench drives a cachingmap workload and reports throughput,
// hit rates, and pointer-stability checks. It can expose Prometheus
// metrics and pprof handlers while the workload runs.
//
// Usage:
//
//	cachebench run [--config workload.yaml] [--debug]
//	    [--metrics-addr :9090] [--pprof-addr :6060]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/stableref/cachingmap"
	"github.com/stableref/cachingmap/internal/workload"
	"github.com/stableref/cachingmap/metrics"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx := listenStopSignal(context.Background())

	// Short-circuit --version/-v.
	for _, a := range os.Args[1:] {
		if a == "--version" || a == "-v" {
			fmt.Println(cachingmap.Version)
			return 0
		}
	}

	app := &cli.Command{
		Name:  "cachebench",
		Usage: "benchmark harness for the cachingmap package",
		Commands: []*cli.Command{
			runCommand(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "execute a workload and print a report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "workload config file (built-in defaults when empty)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "expose Prometheus metrics on this address",
			},
			&cli.StringFlag{
				Name:  "pprof-addr",
				Usage: "expose pprof handlers on this address",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg := workload.DefaultConfig()
	if file := cmd.String("config"); file != "" {
		loaded, err := workload.LoadConfig(file)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := setupLogger(cmd.Bool("debug"))
	cachingmap.SetLogger(logger)

	runner := workload.NewRunner(cfg)

	if addr := cmd.String("metrics-addr"); addr != "" {
		prometheus.MustRegister(metrics.NewCollector("cachebench", runner.Snapshot))
		serveMetrics(ctx, addr, logger)
	}
	servePprof(ctx, cmd.String("pprof-addr"), logger)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printReport(res)
	return nil
}

func setupLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// listenStopSignal returns a context canceled by SIGINT or SIGTERM.
func listenStopSignal(parentCtx context.Context) context.Context {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(parentCtx)
	go func() {
		<-signalCh
		cancel()
	}()
	return ctx
}

// serveMetrics exposes the default Prometheus registry plus a health
// check until ctx is canceled.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics handler started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve metrics handler", "err", err)
		}
	}()

	context.AfterFunc(ctx, func() {
		_ = srv.Close()
		logger.Info("metrics handler stopped")
	})
}

// servePprof exposes the pprof handlers until ctx is canceled. It does
// nothing when addr is empty.
func servePprof(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", httppprof.Index)
	mux.HandleFunc("/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/profile", httppprof.Profile)
	mux.HandleFunc("/symbol", httppprof.Symbol)
	mux.HandleFunc("/trace", httppprof.Trace)

	srv := http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("pprof handler started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve pprof handler", "err", err)
		}
	}()

	context.AfterFunc(ctx, func() {
		_ = srv.Close()
		logger.Info("pprof handler stopped")
	})
}

func printReport(res *workload.Result) {
	s := res.Stats
	fmt.Printf("workload:    %s (%s)\n", res.Name, res.Mode)
	fmt.Printf("operations:  %s in %s\n", humanize.Comma(int64(res.Ops)), res.Duration.Round(time.Millisecond))
	fmt.Printf("throughput:  %s ops/s\n", humanize.CommafWithDigits(res.OpsPerSecond(), 0))
	fmt.Printf("entries:     %s\n", humanize.Comma(int64(s.Entries)))
	fmt.Printf("hit rate:    %.1f%% (%s hits, %s misses)\n",
		s.HitRate()*100, humanize.Comma(int64(s.Hits)), humanize.Comma(int64(s.Misses)))
	fmt.Printf("pin checks:  %d passed\n", res.PinChecks)
}
