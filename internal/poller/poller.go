// Package poller reports which registered socket descriptors have pending
// input, so the engine only visits connections that can make progress.
//
// Registration is level-triggered: a descriptor with unread bytes, a pending
// shutdown or an error is reported on every Wait until it is drained or
// removed. Add, Remove and Wait must be called from a single goroutine; Wake
// may be called from any goroutine to interrupt a blocked Wait.
package poller

import (
	"time"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by New on systems without epoll or poll(2).
var ErrUnsupported = errors.New("poller: unsupported platform")

// timeoutMillis converts a Wait timeout; a negative timeout blocks indefinitely.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	msec := int(timeout.Milliseconds())
	if msec == 0 && timeout > 0 {
		msec = 1
	}
	return msec
}
