//go:build !linux

package system

import (
	"fmt"
)

func platformLazyUnmount(mountPoint string) error {
	return fmt.Errorf("lazy unmount not supported on this platform")
}
