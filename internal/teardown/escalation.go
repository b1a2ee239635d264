package teardown

import (
	"golang.org/x/sys/unix"

	"github.com/aws/chroot-teardown/internal/config"
)

// escalation is the retry state of a single chroot.
type escalation struct {
	// attempts counts failed unmount attempts since the last signal round.
	attempts int
	signal   unix.Signal
}

func newEscalation(opts config.Options) *escalation {
	e := &escalation{signal: unix.SIGTERM}
	if opts.Signal == config.SignalKill {
		e.signal = unix.SIGKILL
	}
	return e
}

// due reports whether enough attempts failed to signal the occupants.
func (e *escalation) due(opts config.Options) bool {
	return opts.Escalates() && e.attempts >= opts.Tries
}

// raise moves to sig unless the current signal is already stronger.
func (e *escalation) raise(sig unix.Signal) {
	if severity(sig) > severity(e.signal) {
		e.signal = sig
	}
}

func severity(sig unix.Signal) int {
	switch sig {
	case unix.SIGKILL:
		return 2
	case unix.SIGTERM:
		return 1
	}
	return 0
}
