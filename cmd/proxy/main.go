// Package main runs the translation proxy as a standalone HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/abbrev"
	"github.com/pricofy/translation-proxy/internal/app"
	"github.com/pricofy/translation-proxy/internal/config"
	"github.com/pricofy/translation-proxy/internal/handler"
	"github.com/pricofy/translation-proxy/internal/logging"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "translation-proxy",
		Short: "Translation proxy for design-tool text layers",
		Long: `translation-proxy translates batches of design-tool text layers.

Commands:
  serve     Run the HTTP server
  resolve   Look up a date abbreviation in the built-in dictionary
  version   Show version information

Configuration comes from an optional config file (--config; any format
viper reads, such as TOML or YAML) and PROXY_* environment variables.
DEEPL_API_KEY, OPENAI_API_KEY and DATABASE_URL are also honored.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a configuration file")

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewServer(a.Handler, a.Registry, cfg.Burst.Rate, cfg.Burst.Burst, cfg.Burst.TrustProxy).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <text> <locale>",
		Short: "Look up a date abbreviation in the built-in dictionary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			translated, ok := abbrev.Default().Resolve(args[0], args[1])
			if !ok {
				return fmt.Errorf("no dictionary entry for %q in %s", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), translated)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "translation-proxy version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}
