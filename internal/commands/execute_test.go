package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestExecuteWrapperSuccess(t *testing.T) {
	old := rootCmd
	ran := false
	rootCmd = &cobra.Command{
		Use: "waychat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ran = true
			return nil
		},
	}
	defer func() { rootCmd = old }()

	// Should not call os.Exit for successful execution
	Execute()

	if !ran {
		t.Error("Execute() did not run the root command")
	}
}

func TestExecuteVersionFlag(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		_ = rootCmd.Flags().Set("version", "false")
	}()

	Execute()

	if !strings.HasPrefix(out.String(), "waychat "+Version) {
		t.Errorf("version output = %q", out.String())
	}
}
