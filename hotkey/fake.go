package hotkey

import "sync"

// FakeHotkey is pressed by calling Press.
type FakeHotkey struct {
	RegisterErr error

	mu           sync.Mutex
	keydown      chan struct{}
	registered   bool
	unregistered bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{keydown: make(chan struct{}, 1)}
}

func (f *FakeHotkey) Register() error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.mu.Lock()
	f.registered = true
	f.mu.Unlock()
	return nil
}

func (f *FakeHotkey) Unregister() {
	f.mu.Lock()
	f.unregistered = true
	f.mu.Unlock()
}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }

// Press blocks until the previous press has been taken.
func (f *FakeHotkey) Press() { f.keydown <- struct{}{} }

func (f *FakeHotkey) Registered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered
}

func (f *FakeHotkey) Unregistered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unregistered
}
