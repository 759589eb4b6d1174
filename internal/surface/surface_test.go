package surface

import "testing"

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"", KindShell, true},
		{"shell", KindShell, true},
		{"compat", KindCompat, true},
		{"xwayland", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseKind(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseKind(%q) = %v, %v", c.in, got, ok)
		}
	}
	if Kind(9).String() != "unknown" {
		t.Errorf("unexpected name for bogus kind")
	}
}

func TestClientDestroyHidesPID(t *testing.T) {
	s := NewShellClient("s", 10)
	x := NewCompatSurface("x", 20)
	if s.PID() != 10 || x.PID() != 20 {
		t.Fatalf("pids: %d %d", s.PID(), x.PID())
	}
	s.Destroy()
	x.Destroy()
	if !s.Destroyed() || !x.Destroyed() {
		t.Fatal("destroy not recorded")
	}
	if s.PID() != 0 || x.PID() != 0 {
		t.Fatalf("pid readable after destroy: %d %d", s.PID(), x.PID())
	}
}

func TestWindowOwner(t *testing.T) {
	s := NewShellClient("s", 1)
	x := NewCompatSurface("x", 2)
	if (&Window{}).Owner() != nil {
		t.Error("orphan window has an owner")
	}
	if (&Window{Shell: s}).Owner() != Client(s) {
		t.Error("shell owner")
	}
	// compat wins when both are set
	if (&Window{Shell: s, Compat: x}).Owner() != Client(x) {
		t.Error("compat owner")
	}
	w := &Window{}
	w.SetNotRespondingTint(0.5)
	if w.NotRespondingTint() != 0.5 {
		t.Error("tint not stored")
	}
}
