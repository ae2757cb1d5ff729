/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePathsNoChroot(t *testing.T) {
	h := New()
	h.Init1("svc", false, true, false)
	h.params.InvokedAsRoot = true

	h.computePaths("/var/run/svc", "")

	require.Equal(t, "/var/run/svc", h.params.PIDDirPreChroot)
	require.Equal(t, "/var/run/svc/svc.pid", h.params.PIDFilePreChroot)
	require.Equal(t, h.params.PIDFilePreChroot, h.params.PIDFilePostChroot)
	require.False(t, h.params.WillChroot)
}

func TestComputePathsWithChrootAsRoot(t *testing.T) {
	dir := t.TempDir()

	h := New()
	h.Init1("svc", false, true, false)
	h.params.InvokedAsRoot = true

	h.computePaths("/run", dir)

	require.True(t, h.params.WillChroot)
	require.Equal(t, dir+"/run/svc.pid", h.params.PIDFilePreChroot)
	require.Equal(t, "/run/svc.pid", h.params.PIDFilePostChroot)
}

func TestComputePathsWithChrootNotRoot(t *testing.T) {
	dir := t.TempDir()

	h := New()
	h.Init1("svc", false, true, false)
	h.params.InvokedAsRoot = false

	h.computePaths("/run", dir)

	require.False(t, h.params.WillChroot)
	require.Equal(t, h.params.PIDFilePreChroot, h.params.PIDFilePostChroot)
}

func TestPidfilePathSelectsByPhase(t *testing.T) {
	h := New()
	h.Init1("svc", false, true, false)
	h.params.InvokedAsRoot = true
	h.computePaths("/run", t.TempDir())

	h.setPhase(Init2Phase)
	require.Equal(t, h.params.PIDFilePreChroot, h.pidfilePath())

	h.setPhase(SecuredPhase)
	require.Equal(t, h.params.PIDFilePostChroot, h.pidfilePath())
}

func TestProvisionPIDDirCreatesMissingDirAndFixesMode(t *testing.T) {
	base := t.TempDir()
	dir := base + "/run"

	h := New()
	h.Init1("svc", false, true, false)
	h.params.PIDDirPreChroot = dir

	h.provisionPIDDir()

	st, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, st.IsDir())
	require.Equal(t, os.FileMode(0755), st.Mode().Perm())
}

func TestProvisionPIDDirFixesExistingModeAndPidfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0700))

	pidPath := dir + "/svc.pid"
	require.NoError(t, os.WriteFile(pidPath, []byte("1\n"), 0600))

	h := New()
	h.Init1("svc", false, true, false)
	h.params.PIDDirPreChroot = dir
	h.params.PIDFilePreChroot = pidPath

	h.provisionPIDDir()

	dst, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0755), dst.Mode().Perm())

	pst, err := os.Stat(pidPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0644), pst.Mode().Perm())
}

func TestProvisionPIDDirNoopWhenNoPidDir(t *testing.T) {
	h := New()
	h.Init1("svc", false, true, false)

	require.NotPanics(t, func() { h.provisionPIDDir() })
}

func TestIsAbs(t *testing.T) {
	require.True(t, isAbs("/var/run"))
	require.False(t, isAbs("var/run"))
	require.False(t, isAbs(""))
	require.Equal(t, os.IsPathSeparator('/'), true)
}
