/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// resolveUser looks up the privilege-drop account by name, rejecting a
// uid or gid of 0 exactly as dmn_init3 does.
func (h *Handle) resolveUser(username string) (uid, gid uint32) {
	u, err := user.Lookup(username)
	if err != nil {
		ce := &ConfigError{Msg: fmt.Sprintf("user '%s' does not exist", username)}
		h.Fatalf("%s", ce.Error())
	}
	uidN, _ := strconv.Atoi(u.Uid)
	gidN, _ := strconv.Atoi(u.Gid)
	if uidN == 0 || gidN == 0 {
		ce := &ConfigError{Msg: fmt.Sprintf("user '%s' has root's uid and/or gid", username)}
		h.Fatalf("%s", ce.Error())
	}
	return uint32(uidN), uint32(gidN)
}

// Secure implements dmn_secure: chroot (if requested) then permanent
// privilege drop (if requested), followed by a self-test that reacquiring
// root fails and all four id queries match the dropped values. Legal
// between phase 4 and phase 6; callable exactly once.
func (h *Handle) Secure() {
	h.phaseCheck("Secure()", ForkedPhase, PidlockedPhase, &h.onceSecure)

	if h.params.WillChroot {
		// Force zoneinfo to be cached before the chroot hides
		// /usr/share/zoneinfo, so syslog timestamps stay correct inside
		// the jail -- the Go analogue of dmn.c's pre-chroot tzset().
		time.Local.String()

		if err := unix.Chroot(h.params.ChrootPath); err != nil {
			se := &SystemError{Op: fmt.Sprintf("chroot(%s)", h.params.ChrootPath), Err: err}
			h.Fatalf("%s", se.Error())
		}
		if err := unix.Chdir("/"); err != nil {
			se := &SystemError{Op: fmt.Sprintf("chdir(/) inside chroot(%s)", h.params.ChrootPath), Err: err}
			h.Fatalf("%s", se.Error())
		}
	}

	if h.params.WillPrivdrop {
		gid := int(h.params.GID)
		uid := int(h.params.UID)

		if err := unix.Setresgid(gid, gid, gid); err != nil {
			se := &SystemError{Op: fmt.Sprintf("setgid(%d)", gid), Err: err}
			h.Fatalf("%s", se.Error())
		}
		if err := unix.Setresuid(uid, uid, uid); err != nil {
			se := &SystemError{Op: fmt.Sprintf("setuid(%d)", uid), Err: err}
			h.Fatalf("%s", se.Error())
		}

		if !privdropStuck(uid, gid) {
			be := &BugError{Msg: "setgid() and/or setuid() do not permanently drop privileges as expected on this platform!"}
			h.Fatalf("%s", be.Error())
		}
	}

	h.setPhase(SecuredPhase)
}

// privdropStuck runs the self-test dmn_secure performs after dropping
// privileges: reacquiring either effective id must fail, and all four id
// queries (real/effective x user/group) must equal the dropped values.
func privdropStuck(uid, gid int) bool {
	if unix.Setresuid(-1, 0, -1) == nil {
		return false
	}
	if unix.Setresgid(-1, 0, -1) == nil {
		return false
	}
	var ruid, euid, suid int
	if unix.Getresuid(&ruid, &euid, &suid) != nil {
		return false
	}
	var rgid, egid, sgid int
	if unix.Getresgid(&rgid, &egid, &sgid) != nil {
		return false
	}
	return ruid == uid && euid == uid && rgid == gid && egid == gid
}
