package engine

import (
	"fmt"
	"strings"
)

// Network-layer failure codes surfaced by Chromium. The engine matches these
// against navigation errors once, here, so nothing downstream has to parse
// error text. The exact strings come from the CDP `net::ERR_*` namespace;
// only this table needs updating if the browser changes its vocabulary.
const (
	NetErrNameNotResolved    = "net::ERR_NAME_NOT_RESOLVED"
	NetErrConnectionRefused  = "net::ERR_CONNECTION_REFUSED"
	NetErrTimedOut           = "net::ERR_TIMED_OUT"
	NetErrConnectionTimedOut = "net::ERR_CONNECTION_TIMED_OUT"
	NetErrConnectionReset    = "net::ERR_CONNECTION_RESET"
	NetErrConnectionClosed   = "net::ERR_CONNECTION_CLOSED"
	NetErrAddressUnreachable = "net::ERR_ADDRESS_UNREACHABLE"
	NetErrInternetDisconnect = "net::ERR_INTERNET_DISCONNECTED"
)

var netErrCodes = []string{
	NetErrNameNotResolved,
	NetErrConnectionRefused,
	NetErrConnectionTimedOut, // before NetErrTimedOut: longer code first
	NetErrTimedOut,
	NetErrConnectionReset,
	NetErrConnectionClosed,
	NetErrAddressUnreachable,
	NetErrInternetDisconnect,
}

// NavError is a navigation failure carrying the matched Chromium network
// error code. Code is always one of the NetErr* constants.
type NavError struct {
	Code string
	Err  error
}

func (e *NavError) Error() string {
	return fmt.Sprintf("navigation failed (%s): %v", e.Code, e.Err)
}

func (e *NavError) Unwrap() error {
	return e.Err
}

// wrapNavError converts a navigation error into a NavError when it carries a
// known Chromium network code, otherwise into a generic EngineError.
func wrapNavError(err error) error {
	text := err.Error()
	for _, code := range netErrCodes {
		if strings.Contains(text, code) {
			return &NavError{Code: code, Err: err}
		}
	}
	return &EngineError{Op: "navigate", Err: err}
}
