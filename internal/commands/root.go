// Package commands provides CLI commands for waychat.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/waychat/internal/config"
)

var (
	// Global flags
	modelFlag    string
	verboseFlag  bool
	logLevelFlag string

	// Query flags
	outputFlag string
	fileFlag   string
	rawFlag    bool
	copyFlag   bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// deps is replaced by tests
var deps = NewDependencies()

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "waychat [prompt]",
	Short: "WayChat assistant for the terminal and the browser",
	Long: `waychat talks to an OpenAI-compatible chat completion service as the
WayChat assistant. It can answer a single prompt, run a chat panel in the
terminal, or serve the chat widget over HTTP.

Examples:
  waychat "What is a Way schema?"     Send a single query
  waychat -f prompt.md                Read prompt from file
  cat prompt.md | waychat             Read prompt from stdin
  waychat "Hello" -o reply.md         Save reply to file
  waychat chat                        Open the terminal chat panel
  waychat serve --listen :8787        Serve the web widget
  waychat config init                 Create ~/.waychat/config.json`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "waychat %s (built %s)\n", Version, BuildTime)
			return nil
		}

		prompt, ok, err := readPrompt(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if !ok {
			return cmd.Help()
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return runQuery(cmd.Context(), deps, cfg, prompt, queryOptions{
			Raw:    rawFlag || !isStdoutTTY(),
			Output: outputFlag,
			Copy:   copyFlag || cfg.CopyToClipboard,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use (e.g., gpt-3.5-turbo)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save reply to file")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the raw reply without decoration")
	rootCmd.Flags().BoolVar(&copyFlag, "copy", false, "Copy the reply to the clipboard")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// readPrompt picks the prompt from --file, piped stdin or the positional
// argument, in that order. ok is false when none was given.
func readPrompt(stdin io.Reader, args []string) (string, bool, error) {
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(f)
			if err != nil {
				return "", false, fmt.Errorf("failed to read stdin: %w", err)
			}
			return string(data), true, nil
		}
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	return "", false, nil
}

// loadConfig loads the user config and applies the global flags
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}

	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
