package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid address"), false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("zillow: %w", NewTransientError(errors.New("rate"), 429)), true},
		{"net timeout", fmt.Errorf("get: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"string pattern", errors.New("read tcp: i/o timeout"), true},
		{"unexpected eof", errors.New("Unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for code, want := range map[int]bool{
		200: false, 400: false, 401: false, 404: false,
		408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
	} {
		if got := IsTransientHTTPStatus(code); got != want {
			t.Errorf("%d: got %v, want %v", code, got, want)
		}
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError("attom", 503, []byte(" down \n"))
	if !IsTransient(err) {
		t.Error("503 should be transient")
	}
	var te *TransientError
	if !errors.As(err, &te) || te.StatusCode != 503 {
		t.Errorf("expected TransientError with 503, got %v", err)
	}
	if !strings.Contains(err.Error(), "attom: unexpected status 503: down") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = StatusError("attom", 404, []byte(strings.Repeat("x", 2000)))
	if IsTransient(err) {
		t.Error("404 should not be transient")
	}
	if len(err.Error()) > 600 {
		t.Errorf("body not truncated: %d bytes", len(err.Error()))
	}
}

func TestClassify(t *testing.T) {
	if Classify(NewTransientError(errors.New("x"), 500)) != "transient" {
		t.Error("expected transient")
	}
	if Classify(errors.New("x")) != "permanent" {
		t.Error("expected permanent")
	}
}
