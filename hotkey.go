package main

import (
	"context"

	"tack/hotkey"
	"tack/log"
)

// startHotkey registers hk and toggles s on every press until the returned
// func is called, which also unregisters it.
func startHotkey(ctx context.Context, s *session, hk hotkey.Hotkey) (func(), error) {
	if err := hk.Register(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				log.Info("hotkey_down")
				s.toggle()
			}
		}
	}()
	return func() {
		cancel()
		<-done
		hk.Unregister()
	}, nil
}
