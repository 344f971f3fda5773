package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	appName  = "tack"
	fileName = "engine_log.txt"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady atomic.Bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: TACK_LOG_PATH environment variable
	if envPath := os.Getenv("TACK_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return defaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady.Store(false)
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(sound, backend string, tempo, subdivisions int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("sound", sound).
		Str("backend", backend).
		Int("tempo", tempo).
		Int("subdivisions", subdivisions).
		Msg("session_start")
}

func SessionEnd(ticks int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Int("ticks", ticks).
		Msg("session_end")
}

// Selection records which preset a requested sound name resolved to.
func Selection(requested, resolved string, strongLong bool) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("requested", requested).
		Str("resolved", resolved).
		Bool("strong_long", strongLong).
		Msg("sound_selected")
}

func FocusChange(change string, volume float32) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("change", change).
		Float32("volume", volume).
		Msg("audio_focus")
}

// WriteFailure records an abandoned render task.
func WriteFailure(track string, dropped int, err error) {
	if !logReady.Load() {
		return
	}
	diagLog.Warn().
		Str("track", track).
		Int("dropped_frames", dropped).
		Err(err).
		Msg("write_failed")
}
