// ABOUTME: Settings loading with global + project config merge
// ABOUTME: settings.json (comments allowed, via jsonc) or settings.yaml, chosen by extension

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Settings holds the merged configuration.
type Settings struct {
	Endpoint    string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey      string   `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Compat      string   `json:"compat,omitempty" yaml:"compat,omitempty"`
	ContextSize int      `json:"contextSize,omitempty" yaml:"contextSize,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	MaxLines    int      `json:"maxLines,omitempty" yaml:"maxLines,omitempty"`
	Temperature float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP        float64  `json:"topP,omitempty" yaml:"topP,omitempty"`
	Stop        []string `json:"stop,omitempty" yaml:"stop,omitempty"`
	// Timeout is a Go duration string bounding each HTTP request.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	CheckpointMarker string         `json:"checkpointMarker,omitempty" yaml:"checkpointMarker,omitempty"`
	MinBudgetChars   int            `json:"minBudgetChars,omitempty" yaml:"minBudgetChars,omitempty"`
	Window           WindowSettings `json:"window,omitzero" yaml:"window,omitempty"`
	Server           ServerSettings `json:"server,omitzero" yaml:"server,omitempty"`

	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

// WindowSettings is the prompt window geometry.
type WindowSettings struct {
	LinesBefore int    `json:"linesBefore,omitempty" yaml:"linesBefore,omitempty"`
	LinesAfter  int    `json:"linesAfter,omitempty" yaml:"linesAfter,omitempty"`
	CacheSlack  int    `json:"cacheSlack,omitempty" yaml:"cacheSlack,omitempty"`
	TTL         string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// ServerSettings describes the local inference server to auto-start.
type ServerSettings struct {
	Command      []string `json:"command,omitempty" yaml:"command,omitempty"`
	AutoStart    *bool    `json:"autoStart,omitempty" yaml:"autoStart,omitempty"`
	IdleTimeout  string   `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`
	StartTimeout string   `json:"startTimeout,omitempty" yaml:"startTimeout,omitempty"`
}

// Load reads and merges global and project-local settings over the
// defaults, then expands ${VAR} references. Project settings override
// global settings.
func Load(projectRoot string) (*Settings, error) {
	global, err := loadFirst(GlobalSettingsFiles())
	if err != nil {
		return nil, fmt.Errorf("loading global settings: %w", err)
	}

	project, err := loadFirst(ProjectSettingsFiles(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("loading project settings: %w", err)
	}

	merged := merge(merge(Defaults(), global), project)
	ResolveEnvVars(merged)
	return merged, nil
}

// loadFirst parses the first existing file among paths. A missing set of
// files yields nil settings and no error.
func loadFirst(paths []string) (*Settings, error) {
	for _, path := range paths {
		s, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return s, err
	}
	return nil, nil
}

// LoadFile reads one settings file. The format follows the extension:
// .yaml/.yml is YAML, anything else is JSON with comments.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return &s, nil
}

// merge overlays project settings onto global settings.
// Non-zero project values override global values.
func merge(global, project *Settings) *Settings {
	if global == nil {
		global = &Settings{}
	}
	if project == nil {
		return global
	}

	result := *global
	setString(&result.Endpoint, project.Endpoint)
	setString(&result.APIKey, project.APIKey)
	setString(&result.Model, project.Model)
	setString(&result.Compat, project.Compat)
	setInt(&result.ContextSize, project.ContextSize)
	setInt(&result.MaxTokens, project.MaxTokens)
	setInt(&result.MaxLines, project.MaxLines)
	if project.Temperature != 0 {
		result.Temperature = project.Temperature
	}
	if project.TopP != 0 {
		result.TopP = project.TopP
	}
	if len(project.Stop) > 0 {
		result.Stop = append([]string(nil), project.Stop...)
	}
	setString(&result.Timeout, project.Timeout)
	setString(&result.CheckpointMarker, project.CheckpointMarker)
	setInt(&result.MinBudgetChars, project.MinBudgetChars)

	setInt(&result.Window.LinesBefore, project.Window.LinesBefore)
	setInt(&result.Window.LinesAfter, project.Window.LinesAfter)
	setInt(&result.Window.CacheSlack, project.Window.CacheSlack)
	setString(&result.Window.TTL, project.Window.TTL)

	if len(project.Server.Command) > 0 {
		result.Server.Command = append([]string(nil), project.Server.Command...)
	}
	if project.Server.AutoStart != nil {
		v := *project.Server.AutoStart
		result.Server.AutoStart = &v
	}
	setString(&result.Server.IdleTimeout, project.Server.IdleTimeout)
	setString(&result.Server.StartTimeout, project.Server.StartTimeout)

	setString(&result.LogLevel, project.LogLevel)
	setString(&result.LogFile, project.LogFile)
	return &result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
