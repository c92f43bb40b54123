package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/shundroid/three-blockly/executor"
)

// isolate keeps a developer's own config file and environment out of the
// test.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"CONFIG", "LOCALE", "LOOP_LIMIT", "TIMEOUT", "MEMORY", "PORT", "SESSION_TTL", "LOG_LEVEL", "LOG_FILE", "NO_CACHE"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyLocale, "ja", "")
	fs.Int(KeyLoopLimit, executor.DefaultLoopLimit, "")
	fs.Duration(KeyTimeout, 30*time.Second, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c != Default() {
		t.Errorf("Load() = %+v, want %+v", c, Default())
	}
	if c.LoopLimit != 1_000_000 {
		t.Errorf("LoopLimit = %d", c.LoopLimit)
	}
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BLOCKCODE_LOOP_LIMIT", "500")
	t.Setenv("BLOCKCODE_TIMEOUT", "5s")
	t.Setenv("BLOCKCODE_LOCALE", "en")

	c, err := Load(testFlags())
	if err != nil {
		t.Fatal(err)
	}
	if c.LoopLimit != 500 || c.Timeout != 5*time.Second || c.Locale != "en" {
		t.Errorf("env not applied: %+v", c)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BLOCKCODE_LOOP_LIMIT", "500")

	fs := testFlags()
	if err := fs.Parse([]string{"--loop-limit=42"}); err != nil {
		t.Fatal(err)
	}
	c, err := Load(fs)
	if err != nil {
		t.Fatal(err)
	}
	if c.LoopLimit != 42 {
		t.Errorf("LoopLimit = %d, want 42", c.LoopLimit)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "blockcode.yaml")
	if err := os.WriteFile(yamlPath, []byte("locale: de\nport: 9090\nsession-ttl: 1h\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOCKCODE_CONFIG", yamlPath)
	c, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Locale != "de" || c.Port != 9090 || c.SessionTTL != time.Hour {
		t.Errorf("yaml not applied: %+v", c)
	}

	tomlPath := filepath.Join(dir, "blockcode.toml")
	if err := os.WriteFile(tomlPath, []byte("memory = \"64mb\"\nno-cache = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOCKCODE_CONFIG", tomlPath)
	c, err = Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Memory != "64mb" || !c.NoCache {
		t.Errorf("toml not applied: %+v", c)
	}
}

func TestLoadFileFromWorkingDir(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("blockcode.yaml", []byte("log-level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", c.LogLevel)
	}
}

func TestLoadMissingNamedFile(t *testing.T) {
	isolate(t)
	t.Setenv("BLOCKCODE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"zero loop limit", func(c *Config) { c.LoopLimit = 0 }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"port range", func(c *Config) { c.Port = 70000 }},
		{"session ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"memory", func(c *Config) { c.Memory = "2tb" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.edit(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestMemoryPages(t *testing.T) {
	tests := map[string]uint32{
		"":      0,
		"none":  0,
		"16MB":  executor.MemoryLimit16MB,
		"256mb": executor.MemoryLimit256MB,
		"1gb":   executor.MemoryLimit1GB,
	}
	for in, want := range tests {
		got, err := Config{Memory: in}.MemoryPages()
		if err != nil || got != want {
			t.Errorf("MemoryPages(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
}
