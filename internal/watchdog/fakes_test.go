package watchdog

import (
	"errors"
	"sync"

	"github.com/loykin/anrwatch/internal/surface"
)

type fakeWindows struct{ ws []*surface.Window }

func (f *fakeWindows) Windows() []*surface.Window { return f.ws }

type fakeProber struct{ probes map[string]int }

func (p *fakeProber) Probe(c surface.Client) {
	if p.probes == nil {
		p.probes = map[string]int{}
	}
	p.probes[c.ID()]++
}

type notice struct {
	kind string
	pid  int
}

type fakeNotifier struct{ got []notice }

func (n *fakeNotifier) Unresponsive(pid int) { n.got = append(n.got, notice{"anr", pid}) }
func (n *fakeNotifier) Recovered(pid int)    { n.got = append(n.got, notice{"anrrecovered", pid}) }

type fakeKiller struct{ pids []int }

func (k *fakeKiller) Terminate(pid int) error {
	k.pids = append(k.pids, pid)
	return nil
}

type fakeTask struct {
	mu     sync.Mutex
	killed int
}

func (t *fakeTask) Kill() {
	t.mu.Lock()
	t.killed++
	t.mu.Unlock()
}

func (t *fakeTask) Killed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.killed > 0
}

type launch struct {
	req  PromptRequest
	task *fakeTask
	done func(string, error)
}

type fakeLauncher struct {
	mu        sync.Mutex
	available bool
	fail      bool
	launches  []*launch
}

func (l *fakeLauncher) Available() bool { return l.available }

func (l *fakeLauncher) Launch(req PromptRequest, done func(string, error)) (PromptTask, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		l.launches = append(l.launches, &launch{req: req})
		return nil, errors.New("spawn failed")
	}
	t := &fakeTask{}
	l.launches = append(l.launches, &launch{req: req, task: t, done: done})
	return t, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

func (l *fakeLauncher) last() *launch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches[len(l.launches)-1]
}

// queuePoster holds posted work until drain is called.
type queuePoster struct{ fns []func() }

func (q *queuePoster) Post(fn func()) bool {
	q.fns = append(q.fns, fn)
	return true
}

func (q *queuePoster) drain() {
	for len(q.fns) > 0 {
		fn := q.fns[0]
		q.fns = q.fns[1:]
		fn()
	}
}

type harness struct {
	engine   *Engine
	windows  *fakeWindows
	prober   *fakeProber
	notifier *fakeNotifier
	killer   *fakeKiller
	launcher *fakeLauncher
	poster   *queuePoster
	settings *StaticSettings
}

type settingsRef struct{ s *StaticSettings }

func (r settingsRef) PromptEnabled() bool { return r.s.Prompt }
func (r settingsRef) Threshold() int      { return r.s.MissedThreshold }

func newHarness(threshold int, prompt bool) *harness {
	h := &harness{
		windows:  &fakeWindows{},
		prober:   &fakeProber{},
		notifier: &fakeNotifier{},
		killer:   &fakeKiller{},
		launcher: &fakeLauncher{available: true},
		poster:   &queuePoster{},
		settings: &StaticSettings{Prompt: prompt, MissedThreshold: threshold},
	}
	h.engine = NewEngine(EngineConfig{
		Windows:  h.windows,
		Prober:   h.prober,
		Notifier: h.notifier,
		Settings: settingsRef{h.settings},
		Launcher: h.launcher,
		Poster:   h.poster,
		Killer:   h.killer,
	})
	return h
}

func (h *harness) shellWindow(id string, c *surface.ShellClient) *surface.Window {
	w := &surface.Window{ID: id, Title: "editor", Class: "org.example.Editor", Mapped: true, Shell: c}
	h.windows.ws = append(h.windows.ws, w)
	h.engine.OnWindowOpened(w)
	return w
}

func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.engine.OnTick()
	}
}

func (h *harness) record(w *surface.Window) *Record {
	return h.engine.Registry().Resolve(w)
}
