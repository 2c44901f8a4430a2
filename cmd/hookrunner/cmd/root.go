package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/hookrunner/internal/action"
	"github.com/gyaneshwarpardhi/hookrunner/internal/api"
	"github.com/gyaneshwarpardhi/hookrunner/internal/config"
	"github.com/gyaneshwarpardhi/hookrunner/internal/dispatch"
	"github.com/gyaneshwarpardhi/hookrunner/internal/logging"
)

const version = "0.2.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "hookrunner",
	Short: "Run shell commands in response to Gitlab webhooks",
	Long: `hookrunner listens for Gitlab webhook deliveries, matches each one
against a set of condition/action rules, and runs the action of every
matching rule as a shell command with the delivery injected through
environment variables and stdin.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	f := rootCmd.Flags()
	f.String("host", "0.0.0.0", "listen host")
	f.IntP("port", "p", 7777, "listen port")
	f.String("rules", "rules.yaml", "rule file path")
	f.String("log-file", "stderr", "log destination: 'stderr', 'stdout', or a file path")
	f.String("log-level", "warn", "log level (debug, info, warn, error)")
	f.String("log-format", "text", "log format (text, json)")
	f.Int("log-max-size-mb", 10, "rotate the log file after this many megabytes")
	f.Int("log-max-backups", 5, "rotated log files to keep")
	f.Int("log-max-age-days", 0, "days to keep rotated log files, 0 keeps them forever")
	f.BoolP("quiet", "q", false, "run in silent mode, no log output is generated")
	f.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown timeout for the HTTP server")
}

func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		cmd.PrintErrln("Error:", err)
		return err
	}

	logger, err := logging.Setup(logging.Options{
		File:       cfg.LogFile,
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Quiet:      cfg.Quiet,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		cmd.PrintErrln("Error:", err)
		return err
	}

	loader, err := config.NewLoader(cfg.RulesFile, logger)
	if err != nil {
		// No usable rules means nothing to serve.
		logger.Error("unable to load rules", "err", err)
		return err
	}

	bridge := dispatch.New(logger, action.NewRunner(logger), loader.Rules())
	bridge.Start()
	defer bridge.Stop()

	loader.OnChange(bridge.SwapRules)
	if stopWatch, err := loader.Watch(); err != nil {
		logger.Warn("rule watcher unavailable, hot-reload disabled", "err", err)
	} else {
		defer stopWatch()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if _, err := loader.Reload(); err != nil {
				logger.Warn("reload failed, keeping previous rules", "err", err)
			}
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.New(bridge, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr(), "rules", cfg.RulesFile)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errC:
		logger.Error("the HTTP server terminated with an error", "err", err)
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutCtx)
	bridge.Stop()
	logger.Info("goodbye")
	return nil
}
