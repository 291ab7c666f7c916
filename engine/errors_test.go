package engine

import (
	"errors"
	"testing"
)

func TestWrapNavError_KnownCodes(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"page load failed: net::ERR_NAME_NOT_RESOLVED", NetErrNameNotResolved},
		{"net::ERR_CONNECTION_REFUSED", NetErrConnectionRefused},
		{"navigation: net::ERR_TIMED_OUT at example.com", NetErrTimedOut},
		{"net::ERR_CONNECTION_TIMED_OUT", NetErrConnectionTimedOut},
		{"net::ERR_CONNECTION_RESET", NetErrConnectionReset},
		{"net::ERR_ADDRESS_UNREACHABLE", NetErrAddressUnreachable},
	}

	for _, tc := range cases {
		err := wrapNavError(errors.New(tc.text))

		var navErr *NavError
		if !errors.As(err, &navErr) {
			t.Errorf("wrapNavError(%q) returned %T, want *NavError", tc.text, err)
			continue
		}
		if navErr.Code != tc.want {
			t.Errorf("wrapNavError(%q) code = %q, want %q", tc.text, navErr.Code, tc.want)
		}
	}
}

func TestWrapNavError_TimedOutNotMistakenForConnectionTimedOut(t *testing.T) {
	// ERR_CONNECTION_TIMED_OUT contains ERR_TIMED_OUT as a substring, so
	// matching order matters.
	err := wrapNavError(errors.New("net::ERR_CONNECTION_TIMED_OUT"))

	var navErr *NavError
	if !errors.As(err, &navErr) {
		t.Fatalf("expected *NavError, got %T", err)
	}
	if navErr.Code != NetErrConnectionTimedOut {
		t.Errorf("expected %s, got %s", NetErrConnectionTimedOut, navErr.Code)
	}
}

func TestWrapNavError_UnknownBecomesEngineError(t *testing.T) {
	orig := errors.New("something else entirely")
	err := wrapNavError(orig)

	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *EngineError, got %T", err)
	}
	if engErr.Op != "navigate" {
		t.Errorf("expected op \"navigate\", got %q", engErr.Op)
	}
	if !errors.Is(err, orig) {
		t.Error("wrapped error lost the original via errors.Is")
	}
}

func TestNavError_Unwrap(t *testing.T) {
	orig := errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := wrapNavError(orig)
	if !errors.Is(err, orig) {
		t.Error("NavError should unwrap to the original error")
	}
}
