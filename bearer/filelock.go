package bearer

import (
	"fmt"
	"os"
	"time"
)

const (
	lockRetries    = 50
	lockRetryDelay = 100 * time.Millisecond
	lockStaleAge   = 30 * time.Second
)

// fileLock is an exclusive lock on a cache file, held by a sibling
// "<path>.lock" file so it works across processes.
type fileLock struct {
	lockFile *os.File
	lockPath string
}

// acquireFileLock blocks until the lock on filePath is held, removing locks
// older than lockStaleAge left behind by crashed processes.
func acquireFileLock(filePath string) (*fileLock, error) {
	lockPath := filePath + ".lock"

	for range lockRetries {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			// PID for debugging
			fmt.Fprintf(lockFile, "%d", os.Getpid())
			return &fileLock{
				lockFile: lockFile,
				lockPath: lockPath,
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire file lock: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil &&
			time.Since(info.ModTime()) > lockStaleAge {
			if remErr := os.Remove(lockPath); remErr != nil && !os.IsNotExist(remErr) {
				return nil, fmt.Errorf(
					"failed to remove stale lock file %s: %w",
					lockPath,
					remErr,
				)
			}
			continue
		}

		time.Sleep(lockRetryDelay)
	}

	return nil, fmt.Errorf(
		"timeout waiting for file lock after %v",
		time.Duration(lockRetries)*lockRetryDelay,
	)
}

func (fl *fileLock) release() error {
	if fl.lockFile != nil {
		fl.lockFile.Close()
	}
	return os.Remove(fl.lockPath)
}
