// Package runlock keeps two runs from rewriting the same manifest.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock past the timeout.
var ErrLocked = errors.New("another run is in progress")

const retryDelay = 200 * time.Millisecond

// PathFor returns the lock file that guards manifestPath.
func PathFor(manifestPath string) string {
	return manifestPath + ".lock"
}

// Lock is a held run lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock beside manifestPath, retrying until timeout or ctx ends.
func Acquire(ctx context.Context, manifestPath string, timeout time.Duration) (*Lock, error) {
	lockPath := PathFor(manifestPath)
	if dir := filepath.Dir(lockPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}

	fl := flock.New(lockPath)
	if timeout <= 0 {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w (lock: %s)", ErrLocked, lockPath)
		}
		return &Lock{fl: fl}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	locked, err := fl.TryLockContext(lockCtx, retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire run lock: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (lock: %s)", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock: %s)", ErrLocked, lockPath)
	}
	return &Lock{fl: fl}, nil
}

// Path reports the lock file location.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The lock file is left in place.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
