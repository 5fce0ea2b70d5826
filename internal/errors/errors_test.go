package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("chat completion", "https://example.test/v1", cause)

	expected := "chat completion failed at https://example.test/v1: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrTransport) {
		t.Error("Expected error to match ErrTransport")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
	if errors.Is(err, ErrRemote) {
		t.Error("Expected error not to match ErrRemote")
	}
}

func TestTransportErrorWithoutEndpoint(t *testing.T) {
	err := NewTransportError("chat completion", "", errors.New("boom"))
	if err.Error() != "chat completion failed: boom" {
		t.Errorf("Error() = %s", err.Error())
	}
}

func TestRemoteError(t *testing.T) {
	err := NewRemoteError(429, "https://example.test/v1", `{"error":"rate limited"}`)

	expected := `remote error [429] at https://example.test/v1: {"error":"rate limited"}`
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrRemote) {
		t.Error("Expected error to match ErrRemote")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("Expected error not to match ErrTransport")
	}
}

func TestRemoteErrorTruncatesBody(t *testing.T) {
	err := NewRemoteError(500, "endpoint", strings.Repeat("x", 10000))
	if len(err.Body) != 4096 {
		t.Errorf("len(Body) = %d, want 4096", len(err.Body))
	}
}

func TestRemoteErrorEmptyBody(t *testing.T) {
	err := NewRemoteError(502, "endpoint", "")
	if err.Error() != "remote error [502] at endpoint" {
		t.Errorf("Error() = %s", err.Error())
	}
}

func TestParseError(t *testing.T) {
	err := NewParseError("not JSON", "choices")
	if err.Error() != "parse error at choices: not JSON" {
		t.Errorf("Error() = %s", err.Error())
	}
	if !errors.Is(err, ErrInvalidResponse) {
		t.Error("Expected error to match ErrInvalidResponse")
	}

	noPath := NewParseError("empty", "")
	if noPath.Error() != "parse error: empty" {
		t.Errorf("Error() = %s", noPath.Error())
	}
}

func TestHelpersOnWrappedErrors(t *testing.T) {
	remote := fmt.Errorf("send: %w", NewRemoteError(401, "ep", "unauthorized"))
	transport := fmt.Errorf("send: %w", NewTransportError("op", "ep2", errors.New("reset")))
	parse := fmt.Errorf("send: %w", NewParseError("bad", ""))

	tests := []struct {
		name          string
		err           error
		wantTransport bool
		wantRemote    bool
		wantParse     bool
		wantStatus    int
		wantBody      string
		wantEndpoint  string
	}{
		{"remote", remote, false, true, false, 401, "unauthorized", "ep"},
		{"transport", transport, true, false, false, 0, "", "ep2"},
		{"parse", parse, false, false, true, 0, "", ""},
		{"plain", errors.New("plain"), false, false, false, 0, "", ""},
		{"nil", nil, false, false, false, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.wantTransport {
				t.Errorf("IsTransportError() = %v, want %v", got, tt.wantTransport)
			}
			if got := IsRemoteError(tt.err); got != tt.wantRemote {
				t.Errorf("IsRemoteError() = %v, want %v", got, tt.wantRemote)
			}
			if got := IsParseError(tt.err); got != tt.wantParse {
				t.Errorf("IsParseError() = %v, want %v", got, tt.wantParse)
			}
			if got := GetHTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("GetHTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := GetResponseBody(tt.err); got != tt.wantBody {
				t.Errorf("GetResponseBody() = %q, want %q", got, tt.wantBody)
			}
			if got := GetEndpoint(tt.err); got != tt.wantEndpoint {
				t.Errorf("GetEndpoint() = %q, want %q", got, tt.wantEndpoint)
			}
		})
	}
}
