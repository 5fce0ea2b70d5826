package commands

import (
	"context"
	"os"
	"testing"

	"github.com/diogo/waychat/internal/api"
	"github.com/diogo/waychat/internal/config"
	"github.com/diogo/waychat/internal/panel"
	"github.com/diogo/waychat/internal/tui"
)

// isolateHome points HOME at a temp dir and clears environment overrides
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"WAYCHAT_API_KEY", "WAYCHAT_MODEL", "WAYCHAT_VERBOSE", "OPENAI_API_KEY", "GLAMOUR_STYLE"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return home
}

// fakeTUI records the controller handed to RunChat
type fakeTUI struct {
	ctrl  *panel.Controller
	opts  []tui.Option
	err   error
	calls int
}

func (f *fakeTUI) RunChat(ctx context.Context, ctrl *panel.Controller, opts ...tui.Option) error {
	f.calls++
	f.ctrl = ctrl
	f.opts = opts
	return f.err
}

type testDeps struct {
	*Dependencies
	mock    *api.MockCompleter
	tui     *fakeTUI
	copied  []string
	copyErr error
}

func newTestDeps(reply string, err error) *testDeps {
	td := &testDeps{
		mock: &api.MockCompleter{Reply: reply, Err: err},
		tui:  &fakeTUI{},
	}
	td.Dependencies = &Dependencies{
		Completer: td.mock,
		TUI:       td.tui,
		Clipboard: func(s string) error {
			td.copied = append(td.copied, s)
			return td.copyErr
		},
	}
	return td
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.Markdown.Style = "notty"
	return cfg
}
