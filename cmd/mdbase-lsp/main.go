// Command mdbase-lsp serves the mdbase language server over stdio, mirroring
// the kong-based CLI entry point of the teacher repository's
// cmd/docbuilder/main.go: a root CLI struct with global flags and
// subcommands, an AfterApply hook that installs a slog logger, and a
// version flag populated at build time via -ldflags.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/callumalpass/mdbase-lsp/internal/config"
	"github.com/callumalpass/mdbase-lsp/internal/lspserver"
	"github.com/callumalpass/mdbase-lsp/internal/metrics"
)

// Set at build time with: -ldflags "-X main.version=1.0.0-rc1"
var version = "dev"

// CLI is the root command definition & global flags, in the same shape as
// docbuilder's CLI struct.
type CLI struct {
	Config  string           `short:"c" help:"Server configuration file path (YAML)." default:""`
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Serve ServeCmd `cmd:"" default:"1" help:"Start the language server over stdio."`
}

// ServeCmd implements the (only) 'serve' subcommand. An LSP server has one
// mode of operation, so unlike docbuilder's several daemon/build/preview
// commands there is just this one plus the implicit version flag.
type ServeCmd struct{}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch os.Getenv("MDBASE_LSP_LOG") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AfterApply installs the default slog logger before any subcommand runs,
// writing to stderr only since stdout carries the LSP JSON-RPC stream.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(c.Verbose),
	}))
	slog.SetDefault(logger)
	return nil
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		go func() {
			if err := metrics.ServeHTTP(cfg.MetricsAddr, reg); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics server stopped", "err", err)
			}
		}()
		slog.Info("metrics listening", "addr", cfg.MetricsAddr)
	}

	server := lspserver.New(cfg, recorder)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("mdbase-lsp starting", "version", version)
	return server.Run(ctx)
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Description("mdbase-lsp: a language server for mdbase markdown collections."),
		kong.Vars{"version": version},
	)

	if err := parser.Run(cli); err != nil {
		slog.Error("mdbase-lsp exited with error", "err", err)
		os.Exit(1)
	}
}
