package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mewkiz/flac"

	"tack/audio"
	"tack/config"
	"tack/engine"
	"tack/soundbank"
)

func testConfig() config.Config {
	return config.Config{
		Tempo:        120,
		Beats:        []engine.Accent{engine.Strong, engine.Normal, engine.Normal, engine.Normal},
		Subdivisions: []engine.Accent{engine.Normal},
		Sound:        soundbank.Default,
		BufferFrames: audio.DefaultBufferFrames,
		TUI:          true,
		RenderBars:   2,
	}
}

func decodedFrames(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New(%s): %v", path, err)
	}
	defer stream.Close()

	total := 0
	for {
		f, err := stream.ParseNext()
		if err != nil {
			break
		}
		total += len(f.Subframes[0].Samples)
	}
	return total
}

func TestRenderBarsLongSound(t *testing.T) {
	cfg := testConfig()
	cfg.Sound = soundbank.Mechanical
	cfg.RenderDir = t.TempDir()

	var out bytes.Buffer
	if err := renderBars(context.Background(), cfg, soundbank.New(soundbank.NewSynthSource()), &out); err != nil {
		t.Fatalf("renderBars: %v", err)
	}

	// 120 BPM: 24000 frames per beat, 96000 per four-beat bar. Each strong
	// beat puts one bar of ring on the long track.
	if got := decodedFrames(t, filepath.Join(cfg.RenderDir, "main.flac")); got != 2*4*24000 {
		t.Errorf("main.flac has %d frames, want %d", got, 2*4*24000)
	}
	if got := decodedFrames(t, filepath.Join(cfg.RenderDir, "long.flac")); got != 2*96000 {
		t.Errorf("long.flac has %d frames, want %d", got, 2*96000)
	}
	if !strings.Contains(out.String(), "8 ticks") {
		t.Errorf("summary = %q, want tick count", out.String())
	}
}

func TestRenderBarsShortSoundKeepsTracksAligned(t *testing.T) {
	cfg := testConfig()
	cfg.Subdivisions = []engine.Accent{engine.Normal, engine.Sub}
	cfg.RenderBars = 1
	cfg.RenderDir = t.TempDir()

	var out bytes.Buffer
	if err := renderBars(context.Background(), cfg, soundbank.New(soundbank.NewSynthSource()), &out); err != nil {
		t.Fatalf("renderBars: %v", err)
	}

	// Short sounds put a full period of silence on the long track for
	// every tick, so both files cover the same time.
	main := decodedFrames(t, filepath.Join(cfg.RenderDir, "main.flac"))
	long := decodedFrames(t, filepath.Join(cfg.RenderDir, "long.flac"))
	if main != 96000 || long != 96000 {
		t.Errorf("frames main=%d long=%d, want 96000 each", main, long)
	}
}

func TestRenderBarsBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.RenderDir = filepath.Join(file, "sub")

	if err := renderBars(context.Background(), cfg, soundbank.New(soundbank.NewSynthSource()), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for a render dir under a file")
	}
}

func TestLoadBankManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "presets.yaml")
	if err := os.WriteFile(manifest, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.PresetsFile = manifest

	bank, err := loadBank(cfg)
	if err != nil {
		t.Fatalf("loadBank: %v", err)
	}
	if _, ok := bank.Preset("mine"); !ok {
		t.Errorf("preset from manifest missing, names %v", bank.Names())
	}
}

func TestLoadBankMissingAssets(t *testing.T) {
	cfg := testConfig()
	cfg.AssetsDir = filepath.Join(t.TempDir(), "nope")
	if _, err := loadBank(cfg); err == nil {
		t.Fatal("expected error for missing assets dir")
	}
}
