package app

import (
	"errors"
	"syscall"
)

// isSyncNoise reports errors that fsync returns for terminals and pipes.
func isSyncNoise(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
