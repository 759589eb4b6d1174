package watchdog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/loykin/anrwatch/internal/metrics"
)

const (
	promptTitle     = "Application Not Responding"
	choiceTerminate = "Terminate"
	choiceWait      = "Wait"
)

// promptDeps is shared by every record's controller.
type promptDeps struct {
	launcher Launcher
	poster   Poster
	killer   Killer
	log      *slog.Logger
}

// promptHandle is one spawned dialog. settled is flipped on the loop once the
// completion has been consumed or the dialog was killed.
type promptHandle struct {
	task    PromptTask
	settled bool
}

// promptController owns at most one dialog for its record.
type promptController struct {
	record  *Record
	deps    *promptDeps
	current *promptHandle
}

func promptText(appName, appClass string) string {
	if appName == "" {
		appName = "unknown"
	}
	if appClass == "" {
		appClass = "unknown"
	}
	return fmt.Sprintf("Application %s with class of %s is not responding.\nWhat do you want to do with it?", appName, appClass)
}

// open replaces any active dialog with a new one. The pid is bound now so a
// later Terminate hits the same process even if the identity is gone by then.
func (p *promptController) open(appName, appClass string, pid int) {
	if p.deps == nil || p.deps.launcher == nil {
		return
	}
	if p.current != nil {
		p.kill()
	}
	req := PromptRequest{
		Title:   promptTitle,
		Text:    promptText(appName, appClass),
		Choices: []string{choiceTerminate, choiceWait},
	}
	h := &promptHandle{}
	task, err := p.deps.launcher.Launch(req, func(result string, err error) {
		p.deps.poster.Post(func() { p.complete(h, pid, result, err) })
	})
	if err != nil {
		p.deps.log.Error("failed to spawn not-responding dialog", "client", p.record.id, "pid", pid, "error", err)
		metrics.IncPromptResult("error")
		return
	}
	h.task = task
	p.current = h
	metrics.IncPromptOpened()
	p.deps.log.Info("not-responding dialog opened", "client", p.record.id, "pid", pid, "title", appName, "class", appClass)
}

// complete runs on the loop. Results for a handle that was killed or
// replaced are dropped.
func (p *promptController) complete(h *promptHandle, pid int, result string, err error) {
	if h.settled || p.current != h {
		return
	}
	h.settled = true
	if err != nil {
		p.deps.log.Error("not-responding dialog failed", "client", p.record.id, "pid", pid, "error", err)
		metrics.IncPromptResult("error")
		return
	}
	switch {
	case strings.HasPrefix(result, choiceTerminate):
		metrics.IncPromptResult("terminate")
		p.deps.log.Info("terminating unresponsive application", "client", p.record.id, "pid", pid)
		if p.deps.killer == nil {
			return
		}
		if kerr := p.deps.killer.Terminate(pid); kerr != nil {
			p.deps.log.Error("failed to terminate application", "pid", pid, "error", kerr)
		}
	case strings.HasPrefix(result, choiceWait):
		metrics.IncPromptResult("wait")
		p.deps.log.Info("user chose to wait for application", "client", p.record.id, "pid", pid)
		p.record.DialogSaidWait = true
	default:
		metrics.IncPromptResult("unrecognized")
		p.deps.log.Error("unrecognized dialog result", "client", p.record.id, "result", result)
	}
}

func (p *promptController) isRunning() bool {
	return p.current != nil && !p.current.settled
}

// kill is idempotent.
func (p *promptController) kill() {
	h := p.current
	if h == nil {
		return
	}
	p.current = nil
	h.settled = true
	if h.task != nil {
		h.task.Kill()
	}
}
