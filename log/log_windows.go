//go:build windows

package log

import (
	"fmt"
	"os"
	"path/filepath"
)

func defaultDir() (string, error) {
	if base := os.Getenv("LOCALAPPDATA"); base != "" {
		return filepath.Join(base, appName, "logs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, "AppData", "Local", appName, "logs"), nil
}
