// Package focus arbitrates which player owns the audio output. The
// engine requests focus when it starts and gives it up when it stops; the
// arbiter reports changes back through Listener.
package focus

import (
	"slices"
	"sync"
)

type Listener interface {
	OnFocusGained()
	OnFocusLostPermanent()
	OnFocusLostTransient()
}

type Arbiter interface {
	Request(l Listener) error
	Abandon(l Listener)
}

// None grants focus to everyone and never takes it back.
type None struct{}

func (None) Request(Listener) error { return nil }
func (None) Abandon(Listener)       {}

// Manual is an arbiter driven by the caller, standing in for a system
// audio policy: the terminal UI maps keys onto its methods.
type Manual struct {
	mu      sync.Mutex
	holders []Listener
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Request(l Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.holders, l) {
		m.holders = append(m.holders, l)
	}
	return nil
}

func (m *Manual) Abandon(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holders = slices.DeleteFunc(m.holders, func(h Listener) bool { return h == l })
}

func (m *Manual) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holders) > 0
}

// listeners is copied out so callbacks may re-enter Request or Abandon.
func (m *Manual) listeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.holders)
}

func (m *Manual) Gain() {
	for _, l := range m.listeners() {
		l.OnFocusGained()
	}
}

// Loss takes focus away for good. Holders are expected to stop and
// abandon.
func (m *Manual) Loss() {
	for _, l := range m.listeners() {
		l.OnFocusLostPermanent()
	}
}

// Duck is a transient loss: another app plays briefly over us.
func (m *Manual) Duck() {
	for _, l := range m.listeners() {
		l.OnFocusLostTransient()
	}
}
