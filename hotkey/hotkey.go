// Package hotkey watches for one global key combination, seen even while
// another window has the keyboard.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCombo toggles play/stop unless -hotkey says otherwise.
const DefaultCombo = "ctrl+shift+space"

var ErrBadCombo = errors.New("bad hotkey")

type Hotkey interface {
	Register() error
	Unregister()
	// Keydown fires once per press of the whole combination.
	Keydown() <-chan struct{}
}

// Combo is a parsed key combination. Key is one of "space", "enter",
// "a" to "z" or "f1" to "f10".
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string
}

// Parse reads combinations like "ctrl+shift+space". At least one
// modifier is required so the hotkey never swallows plain typing.
func Parse(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i < len(parts)-1 {
			switch p {
			case "ctrl", "control":
				c.Ctrl = true
			case "shift":
				c.Shift = true
			default:
				return Combo{}, fmt.Errorf("%w %q: unknown modifier %q", ErrBadCombo, s, p)
			}
			continue
		}
		if !validKey(p) {
			return Combo{}, fmt.Errorf("%w %q: unknown key %q", ErrBadCombo, s, p)
		}
		c.Key = p
	}
	if !c.Ctrl && !c.Shift {
		return Combo{}, fmt.Errorf("%w %q: needs ctrl or shift", ErrBadCombo, s)
	}
	return c, nil
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	key := c.Key
	switch {
	case len(key) == 1:
		key = strings.ToUpper(key)
	case key != "":
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}

func validKey(k string) bool {
	switch {
	case k == "space" || k == "enter":
		return true
	case len(k) == 1:
		return k[0] >= 'a' && k[0] <= 'z'
	}
	for n := 1; n <= 10; n++ {
		if k == fmt.Sprintf("f%d", n) {
			return true
		}
	}
	return false
}
