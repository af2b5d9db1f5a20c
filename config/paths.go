package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultPath returns the default config file location,
// e.g. ~/.config/murmur/config.yaml on Linux.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur", "config.yaml"), nil
}

// SocketPath returns the default control socket location. The socket's
// existence is the "daemon running" signal, so it lives in the user
// runtime dir where it disappears on logout.
func SocketPath() string {
	if runtime.GOOS != "windows" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "murmur.sock")
		}
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("murmur-%d.sock", os.Getuid()))
}

// ModelDir returns where downloaded whisper models are stored,
// e.g. ~/.local/share/murmur/models on Linux.
func ModelDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "murmur", "models"), nil
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(appData, "murmur", "models"), nil
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "murmur", "models"), nil
	}
}
