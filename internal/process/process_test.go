package process

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix only")
	}
}

func TestTerminate_InvalidPID(t *testing.T) {
	err := Terminator{}.Terminate(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPID))
	assert.ErrorIs(t, KillGroup(-1), ErrInvalidPID)
}

func TestTerminate_KillsChild(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, Terminator{}.Terminate(pid))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		require.Error(t, err, "killed process should report a non-nil wait error")
	case <-time.After(3 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
}

func TestTerminate_ExitedProcess(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	err := Terminator{}.Terminate(cmd.Process.Pid)
	assert.ErrorIs(t, err, ErrGone)
}

func TestKillGroup_ReachesGroup(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/sh", "-c", "sleep 30")
	ConfigureGroup(cmd)
	require.NoError(t, cmd.Start())

	require.NoError(t, KillGroup(cmd.Process.Pid))
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("group leader did not exit")
	}
}

func TestAliveAndName_Self(t *testing.T) {
	pid := os.Getpid()
	assert.True(t, Alive(pid))
	assert.NotEmpty(t, Name(pid))
	assert.False(t, Alive(0))
	assert.Equal(t, "", Name(-5))
}
