package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Engine", cfg.Engine, EngineKoko},
		{"Kokoro.Tokens", cfg.Kokoro.Tokens, "tokens.txt"},
		{"Kokoro.DataDir", cfg.Kokoro.DataDir, "espeak-ng-data"},
		{"Kokoro.NumThreads", cfg.Kokoro.NumThreads, 2},
		{"Kokoro.Provider", cfg.Kokoro.Provider, "cpu"},
		{"Koko.Binary", cfg.Koko.Binary, "koko"},
		{"Audio.Clamp", cfg.Audio.Clamp, false},
		{"Cache.Enabled", cfg.Cache.Enabled, false},
		{"Log.Level", cfg.Log.Level, "warn"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}

	if !strings.HasSuffix(cfg.Cache.Path, filepath.Join("kokoro-tts", "cache.db")) {
		t.Errorf("Cache.Path: unexpected default %q", cfg.Cache.Path)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Engine: "KOKO",
		Kokoro: KokoroConfig{Tokens: "/m/tokens.txt", NumThreads: 4, Provider: "cuda"},
		Koko:   KokoConfig{Binary: "/opt/koko"},
		Cache:  CacheConfig{Enabled: true, Path: "/tmp/c.db"},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Engine != EngineKoko {
		t.Errorf("Engine should be normalized to %q: got %q", EngineKoko, cfg.Engine)
	}
	if cfg.Kokoro.Tokens != "/m/tokens.txt" {
		t.Errorf("Kokoro.Tokens should not be overridden: got %s", cfg.Kokoro.Tokens)
	}
	if cfg.Kokoro.NumThreads != 4 {
		t.Errorf("Kokoro.NumThreads should not be overridden: got %d", cfg.Kokoro.NumThreads)
	}
	if cfg.Kokoro.Provider != "cuda" {
		t.Errorf("Kokoro.Provider should not be overridden: got %s", cfg.Kokoro.Provider)
	}
	if cfg.Koko.Binary != "/opt/koko" {
		t.Errorf("Koko.Binary should not be overridden: got %s", cfg.Koko.Binary)
	}
	if cfg.Cache.Path != "/tmp/c.db" {
		t.Errorf("Cache.Path should not be overridden: got %s", cfg.Cache.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("KOKORO_TEST_CACHE", "/var/cache/tts.db")

	yamlContent := `
engine: koko
kokoro:
  num_threads: 1
koko:
  binary: /usr/local/bin/koko
  espeak_data_dir: /usr/share/espeak-ng-data
audio:
  clamp: true
cache:
  enabled: true
  path: ${KOKORO_TEST_CACHE}
log:
  level: debug
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine != EngineKoko {
		t.Errorf("Engine: got %s, want koko", cfg.Engine)
	}
	if cfg.Kokoro.NumThreads != 1 {
		t.Errorf("Kokoro.NumThreads: got %d, want 1", cfg.Kokoro.NumThreads)
	}
	if cfg.Koko.Binary != "/usr/local/bin/koko" {
		t.Errorf("Koko.Binary: got %s", cfg.Koko.Binary)
	}
	if cfg.Koko.EspeakDataDir != "/usr/share/espeak-ng-data" {
		t.Errorf("Koko.EspeakDataDir: got %s", cfg.Koko.EspeakDataDir)
	}
	if !cfg.Audio.Clamp {
		t.Error("Audio.Clamp: expected true")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != "/var/cache/tts.db" {
		t.Errorf("Cache: got %+v", cfg.Cache)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %s", cfg.Log.Level)
	}
	// 未设置的字段走默认值
	if cfg.Kokoro.Tokens != "tokens.txt" {
		t.Errorf("Kokoro.Tokens: got %s", cfg.Kokoro.Tokens)
	}
}

func TestLoad_UnknownEngine(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("engine: espeak\n"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(tmpFile, []byte("engine: [unterminated\n"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadDefault_MissingDefaultFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if cfg.Engine != EngineKoko {
		t.Errorf("Engine: got %s, want koko", cfg.Engine)
	}
}

func TestLoadDefault_ExplicitPathMustExist(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := LoadDefault(); err == nil {
		t.Fatal("expected error when $KOKORO_TTS_CONFIG points to a missing file")
	}
}

func TestLoadDefault_XDGFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "kokoro-tts", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level: got %s, want info", cfg.Log.Level)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if home == "" {
		t.Skip("no home directory")
	}
	if got := expandHome("~/models"); got != filepath.Join(home, "models") {
		t.Errorf("expandHome: got %s", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome should leave absolute paths: got %s", got)
	}
}
