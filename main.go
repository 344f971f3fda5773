package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"tack/audio"
	"tack/config"
	"tack/doctor"
	"tack/hotkey"
	"tack/log"
	"tack/shutdown"
	"tack/soundbank"
)

var version = "dev"

func run(args []string) int {
	cfg, err := config.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.Version {
		fmt.Printf("tack %s\n", version)
		return 0
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open log: %v\n", err)
	}
	defer log.Close()

	bank, err := loadBank(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.Doctor {
		return doctor.Run(doctor.Options{Bank: bank, Backend: cfg.Backend, Device: cfg.Device, Hotkey: cfg.Hotkey})
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if cfg.RenderDir != "" {
		if err := renderBars(ctx, cfg, bank, os.Stdout); err != nil {
			log.Errorf("render: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	err = play(ctx, cfg, bank)
	if errors.Is(err, audio.ErrPickerCancelled) {
		return 130
	}
	if err != nil {
		log.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

// loadBank layers the assets directory over the synthesised sounds and adds
// presets from the manifest.
func loadBank(cfg config.Config) (*soundbank.Bank, error) {
	var src soundbank.Source = soundbank.NewSynthSource()
	if cfg.AssetsDir != "" {
		dir, err := soundbank.OpenDir(cfg.AssetsDir)
		if err != nil {
			return nil, err
		}
		src = soundbank.Chain{dir, src}
	}

	var extra []soundbank.Preset
	if cfg.PresetsFile != "" {
		var err error
		if extra, err = soundbank.LoadManifestFile(cfg.PresetsFile); err != nil {
			return nil, err
		}
	}
	return soundbank.New(src, extra...), nil
}

func play(ctx context.Context, cfg config.Config, bank *soundbank.Bank) error {
	actx, err := audio.Open(cfg.Backend)
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	backend := cfg.Backend
	if backend == "" || backend == audio.BackendAuto {
		backend = audio.PlatformBackend
	}

	var device *audio.DeviceInfo
	if cfg.Setup {
		if device, err = audio.SelectDevice(actx); err != nil {
			return fmt.Errorf("device selection: %w", err)
		}
	} else if cfg.Device != "" {
		if device = audio.FindDevice(actx, cfg.Device); device == nil {
			log.Warnf("output %q not found, using default", cfg.Device)
			fmt.Fprintf(os.Stderr, "Warning: output %q not found, using default\n", cfg.Device)
		}
	}

	s, err := newSession(ctx, sessionOptions{
		Context: actx,
		Bank:    bank,
		Device:  device,
		Backend: backend,
		Config:  cfg,
	})
	if err != nil {
		return err
	}
	log.SessionStart(s.eng.Sound().Name, backend, cfg.Tempo, s.metro.Pattern().SubdivisionCount())

	stopHotkey := func() {}
	if cfg.Hotkey != "" {
		combo, _ := hotkey.Parse(cfg.Hotkey) // checked by config.Validate
		if stop, err := startHotkey(ctx, s, hotkey.New(combo)); err != nil {
			log.Warnf("hotkey %s: %v", combo, err)
			fmt.Fprintf(os.Stderr, "Warning: hotkey %s unavailable: %v\n", combo, err)
		} else {
			stopHotkey = stop
			s.hotkey = combo.String()
		}
	}

	if cfg.TUI && term.IsTerminal(int(os.Stdout.Fd())) {
		err = runTUI(ctx, s)
	} else {
		err = runHeadless(ctx, s)
	}
	stopHotkey()
	log.SessionEnd(int(s.close()))
	return err
}

func runTUI(ctx context.Context, s *session) error {
	if err := s.start(); err != nil {
		return err
	}
	p := tea.NewProgram(newTUIModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func runHeadless(ctx context.Context, s *session) error {
	s.echo = os.Stdout
	if err := s.start(); err != nil {
		return err
	}
	fmt.Printf("Playing %s at %d BPM on %s.\n", s.eng.Sound().Name, s.metro.Tempo(), audio.DeviceLabel(s.device))
	if s.hotkey != "" {
		fmt.Printf("Press %s to play/stop, Ctrl+C to quit.\n", s.hotkey)
	} else {
		fmt.Println("Press Ctrl+C to stop.")
	}
	<-ctx.Done()
	fmt.Println()
	return nil
}
