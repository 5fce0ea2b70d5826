package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/waychat/internal/config"
	"github.com/diogo/waychat/internal/logging"
	"github.com/diogo/waychat/internal/panel"
	"github.com/diogo/waychat/internal/render"
	"github.com/diogo/waychat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat panel in the terminal",
	Long: `Open the WayChat panel in the terminal.

Press ctrl+o (or click the Chat launcher) to open and close the panel.
Clicking outside the panel closes it. Enter sends the message.
Inside the panel:
  /copy              Copy the last reply to the clipboard
  /export [format]   Write the conversation as markdown or json
  /quit              Leave

Logs are written to ~/.waychat/waychat.log while the panel runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), deps, cfg)
	},
}

func runChat(ctx context.Context, deps *Dependencies, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logPath, err := config.GetLogPath()
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(logging.Options{
		Level: cfg.EffectiveLogLevel(),
		File:  logPath,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := deps.completer(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Not configured"))
		return err
	}

	logger.Info().Str("model", cfg.Model).Str("endpoint", cfg.Endpoint).Msg("chat panel started")

	ctrl := panel.New(client, cfg.SystemInstruction(), panel.WithLogger(logger))

	return deps.TUI.RunChat(ctx, ctrl,
		tui.WithModelName(cfg.Model),
		tui.WithMarkdown(render.FromConfig(cfg.Markdown, 0)),
		tui.WithAutoCopy(cfg.CopyToClipboard),
		tui.WithClipboard(deps.Clipboard),
	)
}
