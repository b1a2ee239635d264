//go:build linux

package system

import (
	"golang.org/x/sys/unix"
)

// platformLazyUnmount detaches the mount point (MNT_DETACH); the kernel
// finishes the unmount once it is no longer busy.
func platformLazyUnmount(mountPoint string) error {
	return unix.Unmount(mountPoint, unix.MNT_DETACH)
}
