//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

// The global hotkey needs the OS main thread for its event loop.
func init() {
	runtime.LockOSThread()
}

func main() {
	code := 0
	mainthread.Init(func() { code = run(os.Args[1:]) })
	os.Exit(code)
}
