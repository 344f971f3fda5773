package hotkey

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Combo
		str  string
	}{
		{"ctrl+shift+space", Combo{Ctrl: true, Shift: true, Key: "space"}, "Ctrl+Shift+Space"},
		{" Control + P ", Combo{Ctrl: true, Key: "p"}, "Ctrl+P"},
		{"shift+f10", Combo{Shift: true, Key: "f10"}, "Shift+F10"},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if s := got.String(); s != tc.str {
			t.Errorf("Parse(%q).String() = %q, want %q", tc.in, s, tc.str)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "space", "ctrl+", "alt+space", "ctrl+f11", "ctrl+shift+tab"} {
		if _, err := Parse(in); !errors.Is(err, ErrBadCombo) {
			t.Errorf("Parse(%q) = %v, want ErrBadCombo", in, err)
		}
	}
}

func TestDefaultComboParses(t *testing.T) {
	if _, err := Parse(DefaultCombo); err != nil {
		t.Fatalf("Parse(DefaultCombo): %v", err)
	}
}

func TestFakePress(t *testing.T) {
	f := NewFake()
	var hk Hotkey = f
	if err := hk.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.Press()
	select {
	case <-hk.Keydown():
	default:
		t.Fatal("press not delivered")
	}
	hk.Unregister()
	if !f.Registered() || !f.Unregistered() {
		t.Errorf("registered=%v unregistered=%v", f.Registered(), f.Unregistered())
	}
}
