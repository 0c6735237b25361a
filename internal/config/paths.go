// ABOUTME: Standard filesystem paths for pi-complete configuration
// ABOUTME: Resolves ~/.pi-complete/ for global and .pi-complete/ for project-local settings

package config

import (
	"os"
	"path/filepath"
)

const (
	globalDirName  = ".pi-complete"
	projectDirName = ".pi-complete"
)

// settingsNames are tried in order; the first existing file wins.
var settingsNames = []string{"settings.json", "settings.yaml", "settings.yml"}

// GlobalDir returns the user-global config directory (~/.pi-complete/).
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", globalDirName)
	}
	return filepath.Join(home, globalDirName)
}

// ProjectDir returns the project-local config directory.
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectDirName)
}

// GlobalSettingsFiles returns the candidate global settings files.
func GlobalSettingsFiles() []string {
	return candidates(GlobalDir())
}

// ProjectSettingsFiles returns the candidate project settings files.
func ProjectSettingsFiles(projectRoot string) []string {
	return candidates(ProjectDir(projectRoot))
}

// WatchPaths returns every settings file Load may read.
func WatchPaths(projectRoot string) []string {
	return append(GlobalSettingsFiles(), ProjectSettingsFiles(projectRoot)...)
}

// LogFile returns the default log file path.
func LogFile() string {
	return filepath.Join(GlobalDir(), "pi-complete.log")
}

func candidates(dir string) []string {
	out := make([]string, len(settingsNames))
	for i, name := range settingsNames {
		out[i] = filepath.Join(dir, name)
	}
	return out
}
