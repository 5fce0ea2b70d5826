package tui

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/waychat/internal/errors"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "nil",
			err:      nil,
			contains: nil,
		},
		{
			name:     "remote with body",
			err:      apierrors.NewRemoteError(500, "https://api.example.com/v1/chat/completions", "upstream exploded"),
			contains: []string{"HTTP Status: 500", "Endpoint: https://api.example.com", "upstream exploded"},
		},
		{
			name:     "unauthorized hint",
			err:      apierrors.NewRemoteError(401, "", ""),
			contains: []string{"HTTP Status: 401", "WAYCHAT_API_KEY"},
		},
		{
			name:     "missing key hint",
			err:      apierrors.ErrNoAPIKey,
			contains: []string{"WAYCHAT_API_KEY"},
		},
		{
			name:     "transport hint",
			err:      apierrors.NewTransportError("complete", "https://x", errors.New("dial tcp: refused")),
			contains: []string{"internet connection"},
		},
		{
			name:     "parse hint",
			err:      apierrors.NewParseError("invalid JSON", "body"),
			contains: []string{"did not return a chat completion"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			if tt.err == nil && got != "" {
				t.Fatalf("expected empty output for nil, got %q", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatError() = %q, should contain %q", got, want)
				}
			}
		})
	}
}
