package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/diogo/waychat/internal/config"
	"github.com/diogo/waychat/internal/logging"
	"github.com/diogo/waychat/internal/web"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat widget over HTTP",
	Long: `Serve a page with the WayChat toggle button and panel.

Each browser gets its own panel and conversation, keyed by a session cookie.
The server keeps conversations in memory only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listenFlag != "" {
			cfg.Listen = listenFlag
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, deps, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "Address to listen on (default from config, 127.0.0.1:8787)")
}

// newServer builds the widget server from cfg
func newServer(deps *Dependencies, cfg config.Config, logger zerolog.Logger) (*web.Server, error) {
	client, err := deps.completer(cfg, logger)
	if err != nil {
		return nil, err
	}

	return web.NewServer(web.Options{
		Addr:         cfg.Listen,
		Client:       client,
		SystemPrompt: cfg.SystemInstruction(),
		Model:        cfg.Model,
		Logger:       logger,
	}), nil
}

func runServe(ctx context.Context, deps *Dependencies, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.EffectiveLogLevel()})
	if err != nil {
		return err
	}
	defer closer.Close()

	srv, err := newServer(deps, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("cannot start widget server")
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return stopServer(srv, logger, shutdownTimeout)
}

// shutdownTimeout bounds how long serve waits for in-flight requests
var shutdownTimeout = 5 * time.Second

// stopServer stops srv gracefully. Requests that outlive timeout, such as a
// send still waiting on the completion service, are cut off and logged; that
// is a normal stop, not an error.
func stopServer(srv *web.Server, logger zerolog.Logger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Stop(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Dur("timeout", timeout).Msg("in-flight requests cut off at shutdown")
		return nil
	}
	return err
}
