// Package config reads command-line flags, falling back to TACK_*
// environment variables for anything not given on the command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"tack/audio"
	"tack/engine"
	"tack/hotkey"
	"tack/soundbank"
)

const (
	MinTempo = 1
	MaxTempo = 400
	MaxGain  = 20
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Tempo        int
	Beats        []engine.Accent
	Subdivisions []engine.Accent
	Sound        string
	Gain         int
	Muted        bool
	IgnoreFocus  bool

	Backend      string
	Device       string
	Setup        bool
	BufferFrames int

	AssetsDir   string
	PresetsFile string
	LogPath     string

	// Hotkey is the global play/stop combination, empty when disabled.
	Hotkey     string
	TUI        bool
	Doctor     bool
	RenderDir  string
	RenderBars int
	Version    bool
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Parse reads args (without the program name). It returns flag.ErrHelp
// when -h was given.
func Parse(args []string) (Config, error) {
	var c Config
	var beats, subdivisions string

	fs := flag.NewFlagSet("tack", flag.ContinueOnError)
	fs.IntVar(&c.Tempo, "tempo", envInt("TACK_TEMPO", 120), "Tempo in beats per minute")
	fs.StringVar(&beats, "beats", envStr("TACK_BEATS", "strong,normal,normal,normal"), "Accent per beat: strong, normal, sub or muted")
	fs.StringVar(&subdivisions, "subdivisions", envStr("TACK_SUBDIVISIONS", "normal"), "Accent per subdivision slot; the first slot is the beat itself")
	fs.StringVar(&c.Sound, "sound", envStr("TACK_SOUND", soundbank.Default), "Sound preset")
	fs.IntVar(&c.Gain, "gain", envInt("TACK_GAIN", 0), "Gain boost in dB (0 = off)")
	fs.BoolVar(&c.Muted, "muted", envBool("TACK_MUTED", false), "Keep time silently")
	fs.BoolVar(&c.IgnoreFocus, "ignore-focus", envBool("TACK_IGNORE_FOCUS", false), "Keep playing at full volume when other audio starts")
	fs.StringVar(&c.Backend, "backend", envStr("TACK_BACKEND", audio.BackendAuto), "Audio backend: auto, "+audio.PlatformBackend+" or oto")
	fs.StringVar(&c.Device, "device", envStr("TACK_DEVICE", ""), "Use named output device")
	fs.BoolVar(&c.Setup, "setup", false, "Select output device (otherwise uses system default)")
	fs.IntVar(&c.BufferFrames, "buffer", envInt("TACK_BUFFER_FRAMES", audio.DefaultBufferFrames), "Output buffer in frames")
	fs.StringVar(&c.AssetsDir, "assets", envStr("TACK_ASSETS", ""), "Directory of <payload>.wav files overriding the built-in sounds")
	fs.StringVar(&c.PresetsFile, "presets", envStr("TACK_PRESETS", ""), "YAML file with extra sound presets")
	fs.StringVar(&c.LogPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&c.Hotkey, "hotkey", envStr("TACK_HOTKEY", hotkey.DefaultCombo), "Global play/stop hotkey, or off")
	fs.BoolVar(&c.TUI, "tui", true, "Run with terminal UI")
	fs.BoolVar(&c.Doctor, "doctor", false, "Run system diagnostics and exit")
	fs.StringVar(&c.RenderDir, "render", "", "Render to main.flac and long.flac in this directory instead of playing")
	fs.IntVar(&c.RenderBars, "bars", 4, "Bars to render with -render")
	fs.BoolVar(&c.Version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if c.Hotkey == "off" || c.Hotkey == "none" {
		c.Hotkey = ""
	}

	var err error
	if c.Beats, err = engine.ParsePattern(beats); err != nil {
		return Config{}, fmt.Errorf("%w: beats: %v", ErrInvalid, err)
	}
	if c.Subdivisions, err = engine.ParsePattern(subdivisions); err != nil {
		return Config{}, fmt.Errorf("%w: subdivisions: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Tempo < MinTempo || c.Tempo > MaxTempo:
		return fmt.Errorf("%w: tempo %d outside %d-%d", ErrInvalid, c.Tempo, MinTempo, MaxTempo)
	case len(c.Beats) == 0:
		return fmt.Errorf("%w: no beats", ErrInvalid)
	case len(c.Subdivisions) == 0:
		return fmt.Errorf("%w: no subdivisions", ErrInvalid)
	case c.Gain < 0 || c.Gain > MaxGain:
		return fmt.Errorf("%w: gain %d outside 0-%d", ErrInvalid, c.Gain, MaxGain)
	case c.BufferFrames <= 0:
		return fmt.Errorf("%w: buffer %d frames", ErrInvalid, c.BufferFrames)
	case c.RenderDir != "" && c.RenderBars <= 0:
		return fmt.Errorf("%w: %d bars to render", ErrInvalid, c.RenderBars)
	}
	if c.Hotkey != "" {
		if _, err := hotkey.Parse(c.Hotkey); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	switch c.Backend {
	case "", audio.BackendAuto, audio.BackendOto, audio.PlatformBackend:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalid, audio.ErrUnknownBackend, c.Backend)
	}
	return nil
}
