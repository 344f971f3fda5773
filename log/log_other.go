//go:build !windows

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// defaultDir is ~/Library/Logs/tack on macOS and $XDG_CONFIG_HOME/tack/logs
// everywhere else.
func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", appName), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName, "logs"), nil
}
