package cli

import (
	"errors"

	"golang.org/x/sys/unix"
)

var ErrMustRunAsRoot = errors.New("this command must be run as root")

// IsRunningAsRoot reports whether the effective user is root.
func IsRunningAsRoot() (bool, error) {
	return unix.Geteuid() == 0, nil
}

// EnsureRoot returns ErrMustRunAsRoot unless running as root.
func EnsureRoot() error {
	root, err := IsRunningAsRoot()
	if err != nil {
		return err
	}
	if !root {
		return ErrMustRunAsRoot
	}
	return nil
}
