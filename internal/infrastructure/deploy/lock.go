package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// LockFile is the advisory lock taken in every deploy target.
const LockFile = ".loadout.lock"

// Lock polling bounds.
const (
	lockInitialDelay = 10 * time.Millisecond
	lockMaxDelay     = 500 * time.Millisecond
)

// targetLock is an exclusive flock on <target>/.loadout.lock.
type targetLock struct {
	f *os.File
}

// acquireLock blocks until the lock is held or ctx is done.
func acquireLock(ctx context.Context, target string) (*targetLock, error) {
	//nolint:gosec // G301: deploy targets are user-owned directories
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create target %s: %w", target, err)
	}
	//nolint:gosec // G304: lock path is derived from configured target
	f, err := os.OpenFile(filepath.Join(target, LockFile), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &targetLock{f: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", target, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, fmt.Errorf("waiting for lock on %s: %w", target, ctx.Err())
		case <-time.After(lockBackoff(attempt)):
		}
	}
}

func (l *targetLock) release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return l.f.Close()
}

// lockBackoff doubles the poll delay per attempt up to lockMaxDelay.
func lockBackoff(attempt int) time.Duration {
	if attempt > 16 {
		return lockMaxDelay
	}
	delay := time.Duration(1<<attempt) * lockInitialDelay
	if delay > lockMaxDelay {
		return lockMaxDelay
	}
	return delay
}
