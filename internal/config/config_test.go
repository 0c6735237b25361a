// ABOUTME: Tests for settings loading, merging, validation and env expansion
// ABOUTME: Uses temp HOME and project directories for isolated file-based tests

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	global := &Settings{Model: "default-model", Temperature: 0.7, Window: WindowSettings{LinesBefore: 40}}
	project := &Settings{Model: "project-model", Window: WindowSettings{CacheSlack: 3}}

	result := merge(global, project)

	if result.Model != "project-model" {
		t.Errorf("Model = %q, want %q", result.Model, "project-model")
	}
	if result.Temperature != 0.7 {
		t.Errorf("Temperature = %f, want 0.7", result.Temperature)
	}
	if result.Window.LinesBefore != 40 || result.Window.CacheSlack != 3 {
		t.Errorf("Window = %+v", result.Window)
	}
}

func TestMerge_Nil(t *testing.T) {
	t.Parallel()

	if merge(nil, nil) == nil {
		t.Fatal("merge(nil, nil) should return non-nil")
	}
}

func TestMerge_AutoStartCanBeDisabled(t *testing.T) {
	t.Parallel()

	off := false
	result := merge(Defaults(), &Settings{Server: ServerSettings{AutoStart: &off, Command: []string{"llama-server"}}})
	if result.AutoStart() {
		t.Error("project autoStart=false was ignored")
	}
	if *Defaults().Server.AutoStart != true {
		t.Error("merge mutated the defaults")
	}
}

func TestLoadFile_Formats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "settings.json")
	yamlPath := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(jsonPath, []byte(`{
		// local llama.cpp
		"endpoint": "http://127.0.0.1:8012",
		"window": {"linesBefore": 30,},
	}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte("endpoint: http://127.0.0.1:8012\nwindow:\n  linesBefore: 30\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	fromJSON, err := LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromYAML, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Errorf("formats disagree (-json +yaml):\n%s", diff)
	}
}

func TestLoadFile_NotExist(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile("/nonexistent/path/settings.json"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"maxLines": "many"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoad_GlobalAndProject(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PI_TEST_KEY", "sk-test")
	root := t.TempDir()

	for _, dir := range []string{GlobalDir(), ProjectDir(root)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(GlobalDir(), "settings.yaml"), []byte("model: global\napiKey: ${PI_TEST_KEY}\nmaxLines: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ProjectDir(root), "settings.json"), []byte(`{"model": "project"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Model != "project" || s.APIKey != "sk-test" || s.MaxLines != 8 {
		t.Errorf("merged = model %q key %q maxLines %d", s.Model, s.APIKey, s.MaxLines)
	}
	if s.Endpoint != Defaults().Endpoint || s.RequestTimeout() != 30*time.Second {
		t.Errorf("defaults not applied: %q %v", s.Endpoint, s.RequestTimeout())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad endpoint", func(s *Settings) { s.Endpoint = "localhost:8012" }},
		{"bad compat", func(s *Settings) { s.Compat = "ollama-ish" }},
		{"negative lines", func(s *Settings) { s.MaxLines = -1 }},
		{"temperature", func(s *Settings) { s.Temperature = 3 }},
		{"topP", func(s *Settings) { s.TopP = 1.5 }},
		{"window", func(s *Settings) { s.Window.CacheSlack = -2 }},
		{"duration", func(s *Settings) { s.Window.TTL = "five minutes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(s)
			if err := s.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate = %v, want ErrInvalid", err)
			}
		})
	}

	if err := Defaults().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	s := Defaults()
	if s.WindowTTL() != 5*time.Minute || s.IdleTimeout() != 15*time.Minute || s.StartTimeout() != time.Minute {
		t.Errorf("durations = %v %v %v", s.WindowTTL(), s.IdleTimeout(), s.StartTimeout())
	}
	if s.AutoStart() {
		t.Error("AutoStart without a command must be false")
	}
	if s.WindowOptions().LinesBefore != s.Window.LinesBefore {
		t.Error("WindowOptions mismatch")
	}
}
