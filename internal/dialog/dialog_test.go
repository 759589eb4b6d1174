package dialog

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/anrwatch/internal/watchdog"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix only")
	}
}

// fakeDialog writes an executable shell script standing in for the dialog.
func fakeDialog(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake-dialog")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

type result struct {
	out string
	err error
}

func launch(t *testing.T, l *Launcher) (watchdog.PromptTask, chan result) {
	t.Helper()
	ch := make(chan result, 1)
	task, err := l.Launch(watchdog.PromptRequest{
		Title:   "Application Not Responding",
		Text:    "Application foo with class of bar is not responding.",
		Choices: []string{"Terminate", "Wait"},
	}, func(out string, err error) { ch <- result{out, err} })
	require.NoError(t, err)
	return task, ch
}

func TestArgs(t *testing.T) {
	args := Args(watchdog.PromptRequest{Title: "T", Text: "X", Choices: []string{"Terminate", "Wait"}})
	assert.Equal(t, []string{"--title", "T", "--text", "X", "--buttons", "Terminate;Wait"}, args)
}

func TestAvailable(t *testing.T) {
	requireUnix(t)
	assert.True(t, New(fakeDialog(t, "exit 0"), nil).Available())
	assert.False(t, New("definitely-not-a-real-dialog-binary", nil).Available())
	assert.Equal(t, DefaultBinary, New("", nil).Binary)
}

func TestLaunch_ReportsChoice(t *testing.T) {
	requireUnix(t)
	l := New(fakeDialog(t, `echo ""; echo "Wait"`), nil)
	_, ch := launch(t, l)
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		assert.Equal(t, "Wait", r.out)
	case <-time.After(5 * time.Second):
		t.Fatal("dialog did not complete")
	}
}

func TestLaunch_NonZeroExitIsError(t *testing.T) {
	requireUnix(t)
	l := New(fakeDialog(t, "exit 3"), nil)
	_, ch := launch(t, l)
	select {
	case r := <-ch:
		assert.Error(t, r.err)
	case <-time.After(5 * time.Second):
		t.Fatal("dialog did not complete")
	}
}

func TestLaunch_SpawnFailure(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing"), nil)
	task, err := l.Launch(watchdog.PromptRequest{}, func(string, error) {
		t.Error("done must not run when spawning fails")
	})
	assert.Error(t, err)
	assert.Nil(t, task)
}

func TestKill_Idempotent(t *testing.T) {
	requireUnix(t)
	l := New(fakeDialog(t, "sleep 30"), nil)
	task, ch := launch(t, l)
	tk := task.(*Task)
	assert.True(t, tk.Running())

	task.Kill()
	task.Kill()

	select {
	case r := <-ch:
		assert.ErrorIs(t, r.err, ErrKilled)
	case <-time.After(5 * time.Second):
		t.Fatal("killed dialog did not complete")
	}
	<-tk.Done()
	assert.False(t, tk.Running())
}
