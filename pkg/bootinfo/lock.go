// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// sessionLock is the exclusive-access advisory lock guarding a bootinfo
// session: shared for read sessions, exclusive for write sessions. It
// is held for the entire session, including the re-initialization path.
type sessionLock struct {
	f *os.File
}

// acquireLock creates (if needed) cfg.LockDir with mode 02770, optionally
// chowns it to cfg.LockGroup, and takes a shared or exclusive flock on
// the lockfile within it.
func acquireLock(cfg Config, exclusive bool) (*sessionLock, error) {
	if err := ensureLockDir(cfg); err != nil {
		return nil, err
	}

	path := filepath.Join(cfg.LockDir, DefaultLockFile)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o770)
	if err != nil {
		return nil, wrapErr(KindLock, err, "open lockfile")
	}

	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}

	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()

		return nil, wrapErr(KindLock, err, "acquire lockfile")
	}

	return &sessionLock{f: f}, nil
}

func ensureLockDir(cfg Config) error {
	_, statErr := os.Stat(cfg.LockDir)

	if err := os.MkdirAll(cfg.LockDir, 0o770); err != nil {
		return wrapErr(KindLock, err, "create lock directory")
	}

	// mkdir does not apply the setgid bit and is subject to the umask, so
	// a freshly created directory gets its 02770 mode explicitly.
	if os.IsNotExist(statErr) {
		if err := os.Chmod(cfg.LockDir, 0o770|os.ModeSetgid); err != nil {
			return wrapErr(KindLock, err, "set lock directory mode")
		}
	}

	if cfg.LockGroup == "" {
		return nil
	}

	gid, err := resolveGroup(cfg.LockGroup)
	if err != nil {
		return wrapErr(KindLock, err, "resolve lock group")
	}

	if err := os.Chown(cfg.LockDir, -1, gid); err != nil {
		return wrapErr(KindLock, err, "chown lock directory")
	}

	return nil
}

func resolveGroup(name string) (int, error) {
	if gid, err := strconv.Atoi(name); err == nil {
		return gid, nil
	}

	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(g.Gid)
}

// release drops the flock and closes the lockfile descriptor.
func (l *sessionLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}

	err := l.f.Close()
	l.f = nil

	if err != nil {
		return wrapErr(KindLock, err, "release lockfile")
	}

	return nil
}
