package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorFormatting(t *testing.T) {
	err := New(CodeFormat, "missing header")
	if err.Error() != "[FORMAT_ERROR] missing header" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	wrapped := Wrap(fmt.Errorf("eof"), CodeDecode, "bad schema")
	if wrapped.Error() != "[DECODE_ERROR] bad schema: eof" {
		t.Errorf("unexpected wrapped error string: %s", wrapped.Error())
	}
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := TransportError("request failed", inner)

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"transport error", TransportError("timeout", nil), true},
		{"server error", ServerError(500, "http://x"), false},
		{"decode error", DecodeError("bad json", nil), false},
		{"format error", FormatError("no header"), false},
		{"plain error", fmt.Errorf("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestServerErrorStatusCode(t *testing.T) {
	err := ServerError(503, "http://example.com/get.php")

	if StatusCode(err) != 503 {
		t.Errorf("expected status 503, got %d", StatusCode(err))
	}
	if StatusCode(fmt.Errorf("plain")) != 0 {
		t.Error("plain errors should carry no status code")
	}
}

func TestGetErrorCode(t *testing.T) {
	if GetErrorCode(NoCatalogs("http://addon")) != CodeNoCatalogs {
		t.Error("expected NO_CATALOGS code")
	}
	if GetErrorCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("expected UNKNOWN_ERROR for plain errors")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := FormatError("first line is not #EXTM3U")
	outer := fmt.Errorf("parse playlist: %w", inner)

	if !IsCode(outer, CodeFormat) {
		t.Error("expected IsCode to see through fmt.Errorf wrapping")
	}
}
