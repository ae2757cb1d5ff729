/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentionErrorMessageVariants(t *testing.T) {
	plain := &ContentionError{PIDFile: "/var/run/svc.pid", Holder: 123, Restart: false}
	require.Contains(t, plain.Error(), "another instance")
	require.Contains(t, plain.Error(), "/var/run/svc.pid")
	require.Contains(t, plain.Error(), "123")

	restart := &ContentionError{PIDFile: "/var/run/svc.pid", Holder: 456, Restart: true}
	require.Contains(t, restart.Error(), "restart:")
	require.Contains(t, restart.Error(), "456")
	require.NotEqual(t, plain.Error(), restart.Error())
}

func TestSystemErrorUnwraps(t *testing.T) {
	inner := errors.New("permission denied")
	se := &SystemError{Op: "chroot", Err: inner}
	require.ErrorIs(t, se, inner)
	require.Contains(t, se.Error(), "chroot")
}

func TestBugAndConfigErrorMessages(t *testing.T) {
	require.Equal(t, "BUG: phase violation", (&BugError{Msg: "phase violation"}).Error())
	require.Equal(t, "chroot() requires a username", (&ConfigError{Msg: "chroot() requires a username"}).Error())
}
