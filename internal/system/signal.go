package system

import (
	"golang.org/x/sys/unix"
)

// Signaler delivers signals to processes.
type Signaler struct{}

func NewSignaler() *Signaler {
	return &Signaler{}
}

func (*Signaler) Signal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}
