/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"fmt"
	"os"
	"path/filepath"
)

// computePaths derives the pre-chroot and post-chroot pidfile paths from
// (name, pidDir, chroot), exactly per spec section 4.4. It is called from
// Init2 and validates both paths itself: each must be absolute, and chroot
// must be an existing directory.
func (h *Handle) computePaths(pidDir, chroot string) {
	if pidDir != "" && !isAbs(pidDir) {
		ce := &ConfigError{Msg: "pid directory path must be absolute!"}
		h.Fatalf("%s", ce.Error())
	}

	if chroot != "" {
		if !isAbs(chroot) {
			ce := &ConfigError{Msg: "chroot() path must be absolute!"}
			h.Fatalf("%s", ce.Error())
		}
		st, err := os.Lstat(chroot)
		if err != nil {
			se := &SystemError{Op: fmt.Sprintf("lstat(%s)", chroot), Err: err}
			h.Fatalf("%s", se.Error())
		}
		if !st.IsDir() {
			ce := &ConfigError{Msg: fmt.Sprintf("chroot() path '%s' is not a directory!", chroot)}
			h.Fatalf("%s", ce.Error())
		}
		h.params.ChrootPath = chroot
		if h.params.InvokedAsRoot {
			h.params.WillChroot = true
		}
		if pidDir != "" {
			h.params.PIDDirPreChroot = filepath.Join(chroot, pidDir)
			h.params.PIDFilePreChroot = filepath.Join(chroot, pidDir, h.params.Name+".pid")
			if h.params.InvokedAsRoot {
				h.params.PIDFilePostChroot = filepath.Join(pidDir, h.params.Name+".pid")
			} else {
				h.params.PIDFilePostChroot = h.params.PIDFilePreChroot
			}
		}
	} else if pidDir != "" {
		h.params.PIDDirPreChroot = pidDir
		p := filepath.Join(pidDir, h.params.Name+".pid")
		h.params.PIDFilePreChroot = p
		h.params.PIDFilePostChroot = p
	}
}

// pidfilePath selects the pre-chroot or post-chroot pidfile path depending
// on where in the lifecycle the handle currently is, per dmn_status's
// phase-aware selection.
func (h *Handle) pidfilePath() string {
	if h.phase() < SecuredPhase {
		return h.params.PIDFilePreChroot
	}
	return h.params.PIDFilePostChroot
}

// provisionPIDDir creates the pre-chroot pid directory if it's missing (mode
// 0755), verifies and fixes its mode if it already exists, chowns it to the
// target uid/gid when privileges will be dropped, and fixes the mode/owner
// of an already-existing pidfile the same way. Called from Init3, while this
// process still holds whatever privilege it started with -- by the time
// Secure() drops to the unprivileged uid/gid at phase 5, the directory must
// already be writable by that account or AcquirePidfile() at phase 6 can
// never create the pidfile. Mirrors dmn_init3's stat-else-mkdir /
// chmod-if-wrong-mode / chown-if-privdropping sequence.
func (h *Handle) provisionPIDDir() {
	dir := h.params.PIDDirPreChroot
	if dir == "" {
		return
	}

	st, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.Mkdir(dir, 0755); err != nil {
			se := &SystemError{Op: fmt.Sprintf("mkdir(%s)", dir), Err: err}
			h.Fatalf("%s", se.Error())
		}
	case err != nil:
		se := &SystemError{Op: fmt.Sprintf("stat(%s)", dir), Err: err}
		h.Fatalf("%s", se.Error())
	case !st.IsDir():
		ce := &ConfigError{Msg: fmt.Sprintf("pid directory '%s' is not a directory!", dir)}
		h.Fatalf("%s", ce.Error())
	default:
		if st.Mode().Perm() != 0755 {
			if err := os.Chmod(dir, 0755); err != nil {
				se := &SystemError{Op: fmt.Sprintf("chmod(%s, 0755)", dir), Err: err}
				h.Fatalf("%s", se.Error())
			}
		}
	}

	if h.params.WillPrivdrop {
		if err := os.Chown(dir, int(h.params.UID), int(h.params.GID)); err != nil {
			se := &SystemError{Op: fmt.Sprintf("chown(%s)", dir), Err: err}
			h.Fatalf("%s", se.Error())
		}
	}

	path := h.params.PIDFilePreChroot
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, 0644); err != nil {
			se := &SystemError{Op: fmt.Sprintf("chmod(%s, 0644)", path), Err: err}
			h.Fatalf("%s", se.Error())
		}
		if h.params.WillPrivdrop {
			if err := os.Chown(path, int(h.params.UID), int(h.params.GID)); err != nil {
				se := &SystemError{Op: fmt.Sprintf("chown(%s)", path), Err: err}
				h.Fatalf("%s", se.Error())
			}
		}
	}
}
