package ux

import (
	"os"
	"path/filepath"
)

// LocalConfigName is a per-project config file found by walking up from the
// working directory.
const LocalConfigName = ".afyadmin.yaml"

// DiscoverConfigFile returns the config file to use when --config is not
// given. It searches from dir upwards to the enclosing git root (or the
// filesystem root) for LocalConfigName, then tries userDir/config.yaml.
// It returns "" when neither exists.
func DiscoverConfigFile(dir, userDir string) string {
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if isFile(candidate) {
			return candidate
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if userDir != "" {
		candidate := filepath.Join(userDir, "config.yaml")
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
