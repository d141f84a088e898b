package state

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/picklr-io/adopt/internal/logging"
)

// StaleLockAge is how old a lock file must be before it is taken over. A
// holder keeps its lock file fresh for as long as it holds the lock.
const StaleLockAge = 10 * time.Minute

// FileLock is a Locker backed by an exclusively created file. The file names
// its owner; Unlock only removes a lock this FileLock still owns.
type FileLock struct {
	path string

	// RefreshInterval is how often the held lock file's mtime is bumped.
	// Defaults to a third of StaleLockAge.
	RefreshInterval time.Duration

	mu    sync.Mutex
	owner string
	stop  chan struct{}
	done  chan struct{}
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock creates the lock file, failing with ErrLocked if a fresh one exists.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(l.path); err == nil && time.Since(info.ModTime()) > StaleLockAge {
		logging.Warn("removing stale state lock", "path", l.path, "age", time.Since(info.ModTime()).Round(time.Second))
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w (lock file: %s). Run 'adopt state unlock --force' if this is an error", ErrLocked, l.path)
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	owner := uuid.NewString()
	_, werr := fmt.Fprintf(f, "id=%s\npid=%d\ntime=%s\n", owner, os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(l.path)
		return fmt.Errorf("failed to write lock file: %w", werr)
	}

	l.mu.Lock()
	l.owner = owner
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.refresh(owner, l.stop, l.done)
	l.mu.Unlock()
	return nil
}

func (l *FileLock) refresh(owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.RefreshInterval
	if interval <= 0 {
		interval = StaleLockAge / 3
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if current, err := readLockOwner(l.path); err != nil || current != owner {
				logging.Warn("state lock was taken over by another process", "path", l.path)
				return
			}
			now := time.Now()
			if err := os.Chtimes(l.path, now, now); err != nil {
				logging.Warn("failed to refresh state lock", "path", l.path, "error", err)
			}
		}
	}
}

// release stops the refresher and forgets the owner, returning it.
func (l *FileLock) release() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stop != nil {
		close(l.stop)
		<-l.done
		l.stop, l.done = nil, nil
	}
	owner := l.owner
	l.owner = ""
	return owner
}

// Unlock removes the lock file if this FileLock still owns it.
func (l *FileLock) Unlock(ctx context.Context) error {
	owner := l.release()
	if owner == "" {
		return nil
	}

	current, err := readLockOwner(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read lock file: %w", err)
	}
	if current != owner {
		return fmt.Errorf("lock file %s is now held by another process; leaving it in place", l.path)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// ForceUnlock removes the lock regardless of owner.
func (l *FileLock) ForceUnlock(ctx context.Context) error {
	l.release()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func readLockOwner(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		if id, ok := strings.CutPrefix(s.Text(), "id="); ok {
			return id, nil
		}
	}
	return "", nil
}
