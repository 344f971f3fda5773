package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tack/audio"
	"tack/clock"
	"tack/engine"
	"tack/hotkey"
	"tack/shutdown"
	"tack/soundbank"
)

const (
	drainTimeout  = 10 * time.Second
	hotkeyTimeout = 10 * time.Second
)

type Options struct {
	Bank    *soundbank.Bank
	Backend string
	Device  string
	// Hotkey, when set, adds a check that the combination is seen.
	Hotkey string

	// Open and NewHotkey replace audio.Open and hotkey.New, mostly for tests.
	Open      func(backend string) (audio.Context, error)
	NewHotkey func(hotkey.Combo) hotkey.Hotkey

	In  io.Reader
	Out io.Writer
}

type checker struct {
	opts   Options
	in     *bufio.Reader
	out    io.Writer
	device *audio.DeviceInfo
	step   int
	steps  int
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.In == nil {
		resetTerminal()
		setupInterruptHandler()
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Open == nil {
		opts.Open = audio.Open
	}
	if opts.NewHotkey == nil {
		opts.NewHotkey = hotkey.New
	}
	c := &checker{opts: opts, in: bufio.NewReader(opts.In), out: opts.Out, steps: 3}
	if opts.Hotkey != "" {
		c.steps++
	}

	c.println("tack doctor - interactive system diagnostics")
	c.println("============================================")

	allPass := c.checkSounds()
	if allPass {
		allPass = c.checkPlayback()
	}
	if allPass && c.opts.Hotkey != "" {
		allPass = c.checkHotkey()
	}

	c.println()
	if allPass {
		c.println("All checks passed!")
		return 0
	}
	c.println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func (c *checker) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *checker) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func (c *checker) heading(title string) {
	c.step++
	c.println()
	c.printf("[%d/%d] %s\n", c.step, c.steps, title)
}

func (c *checker) readLine() string {
	line, _ := c.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (c *checker) checkSounds() bool {
	c.heading("Sound presets")

	ok := true
	for _, name := range c.opts.Bank.Names() {
		snd, err := c.opts.Bank.Select(name)
		if err != nil {
			c.printf("  FAIL: %s: %v\n", name, err)
			ok = false
			continue
		}
		long := ""
		if snd.StrongLong {
			long = ", long strong"
		}
		c.printf("  %-12s normal %.0fms, strong %.0fms, sub %.0fms%s\n", name,
			snd.Normal.Duration()*1000, snd.Strong.Duration()*1000, snd.Sub.Duration()*1000, long)
	}
	if ok {
		c.println("  PASS: every preset decodes")
	}
	return ok
}

func (c *checker) checkPlayback() bool {
	c.heading("Audio output")

	actx, err := c.opts.Open(c.opts.Backend)
	if err != nil {
		c.printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	if !c.chooseDevice(actx) {
		return false
	}

	eng, err := engine.New(actx, c.opts.Bank, engine.Options{Device: c.device})
	if err != nil {
		c.printf("  FAIL: %v\n", err)
		return false
	}
	defer eng.Close()
	eng.SetIgnoreFocus(true)
	if err := eng.SetSound(soundbank.Mechanical); err != nil {
		c.printf("  FAIL: %v\n", err)
		return false
	}

	c.println()
	c.printf("Press Enter to play one bar at 120 bpm on %s...", audio.DeviceLabel(c.device))
	c.readLine()

	if err := eng.Play(); err != nil {
		c.printf("  FAIL: cannot start playback: %v\n", err)
		return false
	}
	pattern := clock.Pattern{Beats: []engine.Accent{engine.Strong, engine.Normal, engine.Normal, engine.Normal}}
	for _, t := range pattern.Bar() {
		if err := eng.Tick(t, 120, pattern.SubdivisionCount(), pattern.Beats); err != nil {
			c.printf("  FAIL: %v\n", err)
			return false
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := eng.Drain(ctx); err != nil {
		c.printf("  FAIL: playback stalled: %v\n", err)
		return false
	}
	eng.Stop()

	st := eng.Stats()
	if st.Main.Failures+st.Long.Failures > 0 {
		c.printf("  FAIL: %d write errors (see log)\n", st.Main.Failures+st.Long.Failures)
		return false
	}
	if st.Main.Frames == 0 || st.Long.Frames == 0 {
		c.printf("  FAIL: no audio reached the output (main %d, long %d frames)\n", st.Main.Frames, st.Long.Frames)
		return false
	}
	c.printf("  PASS: wrote %d + %d frames\n", st.Main.Frames, st.Long.Frames)

	c.heading("Listening test")
	c.print("Did you hear a ringing bell followed by three ticks? [y/n]: ")
	confirm := strings.ToLower(c.readLine())
	if confirm == "y" || confirm == "yes" {
		c.println("  PASS: playback verified by user")
		return true
	}
	c.println("  FAIL: playback not confirmed")
	return false
}

func (c *checker) print(a ...any) {
	fmt.Fprint(c.out, a...)
}

func (c *checker) chooseDevice(actx audio.Context) bool {
	if c.opts.Device != "" {
		c.device = audio.FindDevice(actx, c.opts.Device)
		if c.device == nil {
			c.printf("  FAIL: no output named %q\n", c.opts.Device)
			return false
		}
		return true
	}

	devices, err := actx.Devices()
	if err != nil {
		c.printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	switch len(devices) {
	case 0:
		c.println("Using system default output")
		return true
	case 1:
		c.device = &devices[0]
		c.printf("Using device: %s\n", c.device.Name)
		return true
	}

	c.println()
	c.println("Select output device:")
	for i, d := range devices {
		c.printf("  %d. %s\n", i+1, d.Name)
	}
	c.printf("Choice [1-%d]: ", len(devices))

	idx := 0
	if choice := c.readLine(); choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		c.println("  FAIL: invalid choice")
		return false
	}
	c.device = &devices[idx]
	c.printf("Selected: %s\n", c.device.Name)
	return true
}

func (c *checker) checkHotkey() bool {
	c.heading("Global hotkey")

	combo, err := hotkey.Parse(c.opts.Hotkey)
	if err != nil {
		c.printf("  FAIL: %v\n", err)
		return false
	}
	hk := c.opts.NewHotkey(combo)
	if err := hk.Register(); err != nil {
		c.printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()
	c.printf("Press %s...\n", combo)

	select {
	case <-hk.Keydown():
		c.println("  PASS: hotkey detected")
		// reading raw key events can leave the terminal in raw mode
		if c.opts.In == os.Stdin {
			resetTerminal()
		}
		return true
	case <-time.After(hotkeyTimeout):
		c.println("  FAIL: timeout waiting for hotkey")
		return false
	}
}
