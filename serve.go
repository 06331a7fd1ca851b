package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"visor-api/api"
	"visor-api/config"
	"visor-api/notify"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		bodyLimit string
		redisURL  string
		debug     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API on the loopback interface.

Examples:
  visor serve
  visor serve --addr 127.0.0.1:9000 --data-dir /tmp/visor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("body-limit") {
				cfg.BodyLimit = bodyLimit
			}
			if cmd.Flags().Changed("redis") {
				cfg.RedisURL = redisURL
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $VISOR_ADDR or 127.0.0.1:8745)")
	cmd.Flags().StringVar(&bodyLimit, "body-limit", "", "maximum request body size, e.g. 64K")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis connection string for change notifications")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := notify.NewBroker()
	rt := newRuntime(cfg, broker)
	defer rt.Close()
	logger := rt.logger

	if rt.publisher != nil {
		go notify.Relay(ctx, rt.redis, cfg.NotifyChannel, rt.publisher.Origin(), broker, logger)
	}

	e := api.NewServer(rt.docs, broker, logger, api.Options{BodyLimit: cfg.BodyLimit})
	// Open event streams end when the signal context is cancelled.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Addr).WithField("data_dir", cfg.DataDir).Info("visor api listening")
		errCh <- e.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
