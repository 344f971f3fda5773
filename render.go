package main

import (
	"context"
	"fmt"
	"io"

	"tack/audio"
	"tack/clock"
	"tack/config"
	"tack/engine"
	"tack/soundbank"
)

// renderBars plays cfg.RenderBars bars through the engine into
// main.flac and long.flac under cfg.RenderDir. Nothing is paced, so the
// render runs as fast as the encoder.
func renderBars(ctx context.Context, cfg config.Config, bank *soundbank.Bank, out io.Writer) error {
	fctx, err := audio.NewFileContext(cfg.RenderDir)
	if err != nil {
		return err
	}
	defer fctx.Close()

	eng, err := engine.New(fctx, bank, engine.Options{BufferFrames: cfg.BufferFrames})
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.SetIgnoreFocus(true)
	if err := eng.SetSound(cfg.Sound); err != nil {
		return err
	}
	eng.SetGain(cfg.Gain)
	eng.SetMuted(cfg.Muted)
	if err := eng.Play(); err != nil {
		return err
	}

	p := clock.Pattern{Beats: cfg.Beats, Subdivisions: cfg.Subdivisions}
	for _, t := range p.Ticks(cfg.RenderBars * p.TicksPerBar()) {
		if err := eng.Tick(t, cfg.Tempo, p.SubdivisionCount(), p.Beats); err != nil {
			return err
		}
	}
	if err := eng.Drain(ctx); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	stats := eng.Stats()
	eng.Stop()

	if err := fctx.Err(); err != nil {
		return err
	}
	if n := stats.Main.Failures + stats.Long.Failures; n > 0 {
		return fmt.Errorf("%w: %d segments not rendered", engine.ErrHardwareWrite, n)
	}

	for _, path := range fctx.Paths() {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	fmt.Fprintf(out, "%d bars, %d ticks, %.2fs of %s at %d BPM\n",
		cfg.RenderBars, stats.Ticks, float64(stats.Main.Frames)/engine.SampleRate, eng.Sound().Name, cfg.Tempo)
	return nil
}
