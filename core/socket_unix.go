//go:build !windows

package core

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isPermissionError reports whether err is the kernel telling us we lack
// CAP_NET_RAW (or equivalent) to open a raw ICMP socket, the situation
// §6 requires we turn into a clear diagnostic rather than a bare syscall
// error.
func isPermissionError(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
