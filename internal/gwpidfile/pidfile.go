// Package gwpidfile implements the gateway's pidfile and process lockfile
// (spec §6 "Persisted state": "None owned by the gateway except pidfile
// and a process lockfile"), grounded on the original gateway's use of an
// flock-based single-instance guard (original_source/src/zgw_server.cc).
package gwpidfile

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Lock holds an open, flock'd lockfile descriptor for the process's
// lifetime; releasing it (by process exit or explicit Close) frees the
// lock for the next instance.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive, non-blocking flock on lockPath, failing if
// another live gateway process already holds it, then writes the current
// pid to pidPath.
func Acquire(pidPath, lockPath string) (*Lock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open lockfile")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "another gateway instance already holds the lockfile")
	}
	if pidPath != "" {
		if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
			unix.Flock(int(f.Fd()), unix.LOCK_UN)
			f.Close()
			return nil, errors.Wrap(err, "write pidfile")
		}
	}
	return &Lock{f: f}, nil
}

// Close releases the flock and closes the lockfile descriptor.
func (l *Lock) Close() error {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return l.f.Close()
}
