package commands

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/diogo/waychat/internal/api"
	"github.com/diogo/waychat/internal/config"
	apierrors "github.com/diogo/waychat/internal/errors"
	"github.com/diogo/waychat/internal/panel"
	"github.com/diogo/waychat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, ctrl *panel.Controller, opts ...tui.Option) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Completer overrides the completion client built from config.
	Completer api.Completer

	// TUI is the terminal user interface.
	TUI TUIInterface

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, ctrl *panel.Controller, opts ...tui.Option) error {
	return tui.RunChat(ctx, ctrl, opts...)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:       &DefaultTUI{},
		Clipboard: clipboard.WriteAll,
	}
}

// completer returns the injected completer or builds an api.Client from cfg
func (d *Dependencies) completer(cfg config.Config, logger zerolog.Logger) (api.Completer, error) {
	if d.Completer != nil {
		return d.Completer, nil
	}

	if cfg.APIKey == "" {
		return nil, apierrors.ErrNoAPIKey
	}

	client, err := api.NewClient(cfg.APIKey,
		api.WithEndpoint(cfg.Endpoint),
		api.WithModel(cfg.Model),
		api.WithTemperature(cfg.Temperature),
		api.WithMaxTokens(cfg.MaxTokens),
		api.WithTimeoutSeconds(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}
