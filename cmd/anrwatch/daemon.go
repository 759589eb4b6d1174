package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/gofrs/flock"
)

// daemonize re-executes the current command in the background and exits the parent.
// The child acquires the pidfile itself.
func daemonize(logFile string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	var newArgs []string
	skipNext := false
	for _, arg := range os.Args[1:] {
		if skipNext {
			skipNext = false
			continue
		}
		if arg == "--daemonize" {
			continue
		}
		if arg == "--logfile" {
			skipNext = true
			continue
		}
		newArgs = append(newArgs, arg)
	}

	// #nosec 204
	cmd := exec.Command(executable, newArgs...)
	configureDaemonAttrs(cmd)
	cmd.Stdin = nil

	if logFile != "" {
		// #nosec 304
		logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = logF.Close() }()
		cmd.Stdout = logF
		cmd.Stderr = logF
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}
	fmt.Printf("Daemon started with PID %d\n", cmd.Process.Pid)

	os.Exit(0)
	return nil
}

// acquirePIDFile takes an exclusive lock next to pidFile and writes our pid.
// The returned func removes the file and releases the lock.
func acquirePIDFile(pidFile string) (func(), error) {
	fileLock := flock.New(pidFile + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, errors.New("anrwatch already running (lock held by another process)")
	}
	if err := writePidFile(pidFile, os.Getpid()); err != nil {
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("writing PID file: %w", err)
	}
	return func() {
		_ = removePidFile(pidFile)
		_ = fileLock.Unlock()
	}, nil
}

// writePidFile writes the daemon PID to a file
func writePidFile(pidFile string, pid int) error {
	// #nosec 302
	f, err := os.OpenFile(pidFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.WriteString(strconv.Itoa(pid))
	return err
}

// removePidFile removes the PID file
func removePidFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	return os.Remove(pidFile)
}
