package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/diogo/waychat/internal/config"
	"github.com/diogo/waychat/internal/logging"
	"github.com/diogo/waychat/internal/panel"
	"github.com/diogo/waychat/internal/render"
	"github.com/diogo/waychat/internal/tui"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorWarning  = lipgloss.Color("#f7768e")
	colorPrimary  = lipgloss.Color("#7aa2f7")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)
)

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner writing to out
func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.out, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(s.out, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// queryOptions controls how a one-shot reply is delivered
type queryOptions struct {
	Raw    bool
	Output string
	Copy   bool
	Stdout io.Writer
	Stderr io.Writer
}

// runQuery sends prompt as a single turn and prints the reply.
// In raw mode only the reply text is written.
func runQuery(ctx context.Context, deps *Dependencies, cfg config.Config, prompt string, opts queryOptions) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Failures are reported on stderr below; diagnostics only in verbose mode
	logger := zerolog.Nop()
	if cfg.Verbose {
		logger = logging.NewConsole(opts.Stderr, zerolog.DebugLevel, opts.Raw)
	}

	client, err := deps.completer(cfg, logger)
	if err != nil {
		if !opts.Raw {
			fmt.Fprintln(opts.Stderr, formatErrorMessage(err, "Not configured"))
		}
		return err
	}

	logger.Debug().Str("model", cfg.Model).Str("endpoint", cfg.Endpoint).Msg("sending query")

	ctrl := panel.New(client, cfg.SystemInstruction(), panel.WithLogger(logger))

	var spin *spinner
	if !opts.Raw {
		spin = newSpinner(opts.Stderr, "Waiting for WayChat")
		spin.start()
	}

	startTime := time.Now()
	err = ctrl.Submit(ctx, prompt)
	requestDuration := time.Since(startTime)

	if err != nil {
		if !opts.Raw {
			spin.stopWithError()
			fmt.Fprintln(opts.Stderr, formatErrorMessage(err, "Completion failed"))
		}
		return fmt.Errorf("completion failed: %w", err)
	}
	if !opts.Raw {
		spin.stopWithSuccess("Done")
	}

	logger.Debug().Dur("elapsed", requestDuration.Round(time.Millisecond)).Msg("query finished")

	text := ctrl.LastReply()

	if opts.Copy {
		if err := deps.Clipboard(text); err != nil {
			if !opts.Raw {
				warnMsg := lipgloss.NewStyle().Foreground(colorWarning).Render(
					fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
				)
				fmt.Fprintln(opts.Stderr, warnMsg)
			}
		} else if !opts.Raw {
			fmt.Fprintln(opts.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !opts.Raw {
			successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Reply saved to %s", opts.Output),
			)
			fmt.Fprintln(opts.Stderr, successMsg)
		}
		return nil
	}

	if opts.Raw {
		fmt.Fprint(opts.Stdout, text)
		return nil
	}

	// Get terminal width for proper formatting
	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(opts.Stdout, assistantLabelStyle.Render("✦ WayChat"))

	rendered := render.Reply(text, render.FromConfig(cfg.Markdown, contentWidth))
	fmt.Fprintln(opts.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

	return nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}
	return tui.FormatError(fmt.Errorf("%s: %w", context, err))
}
