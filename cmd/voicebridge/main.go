package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"voicebridge/internal/browser"
	"voicebridge/internal/config"
	"voicebridge/internal/server"
	"voicebridge/internal/store"
	"voicebridge/internal/sweep"
)

var (
	cfgPath string
	verbose bool

	logger *zap.Logger
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "voicebridge",
	Short: "HTTP bridge over a browser-automated messaging session",
	Long: `voicebridge drives a single logged-in browser session against the
messaging web application and exposes it three ways: on-demand conversation
reads, on-demand sends into the currently open conversation, and a periodic
sweep that reconciles every account's inbox previews into SQLite.

All three share one navigable page; access is serialized in arrival order.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voicebridge %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "voicebridge.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := browser.New(cfg.Backend.BaseURL, cfg.Browser, logger)

	// One-time startup. A failure here leaves every endpoint answering 500
	// until the operator restarts the process; the session is never
	// relaunched automatically because a half-alive Chrome profile is worse
	// than an obviously dead one.
	go func() {
		if err := sess.Start(ctx); err != nil {
			logger.Error("session startup failed, automation halted until restart",
				zap.Error(err))
			return
		}
		logger.Info("log in to the messaging application in the opened browser if prompted")
	}()

	sweeper := sweep.New(sess, st, cfg.Backend.ID,
		cfg.Sweep.AccountCount(),
		cfg.Sweep.IntervalDuration(),
		cfg.Sweep.StartupDelayDuration(),
		logger)
	srv := server.New(sess, st, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := sess.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("session shutdown", zap.Error(serr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
