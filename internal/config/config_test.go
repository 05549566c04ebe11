package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/grinder/internal/logic"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Grinder.GrindLimit != 30*time.Second {
		t.Errorf("expected 30s grind limit, got %v", cfg.Grinder.GrindLimit)
	}
	if cfg.Grinder.SleepAfter != 15*time.Second {
		t.Errorf("expected 15s sleep, got %v", cfg.Grinder.SleepAfter)
	}
	if cfg.Grinder.ResetWindow != 20*time.Hour {
		t.Errorf("expected 20h reset window, got %v", cfg.Grinder.ResetWindow)
	}
	if cfg.Settings.Offset != 20 {
		t.Errorf("expected settings offset 20, got %d", cfg.Settings.Offset)
	}
	if cfg.MQTT.Broker != "" || cfg.HTTP.Addr != "" {
		t.Error("expected network sinks disabled by default")
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
grinder:
  variant: weight
  lockout: true
  grind_limit: 45s
loop:
  debounce: 20ms
panel:
  rotary_a: 0
  rotary_ground: 1
  rotary_dir: 2
  button: 3
  button_ground: 4
mqtt:
  broker: tcp://10.0.0.2:1883
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	v := cfg.Variant()
	if v.Mode != logic.ModeWeight || !v.Lockout {
		t.Errorf("unexpected variant %+v", v)
	}
	if cfg.Grinder.GrindLimit != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Grinder.GrindLimit)
	}
	if cfg.Loop.Debounce != 20*time.Millisecond {
		t.Errorf("expected 20ms debounce, got %v", cfg.Loop.Debounce)
	}
	if cfg.Panel.Button != 3 {
		t.Errorf("expected button pin 3, got %d", cfg.Panel.Button)
	}
	// Untouched keys keep their defaults.
	if cfg.Grinder.SleepAfter != 15*time.Second {
		t.Errorf("expected default sleep, got %v", cfg.Grinder.SleepAfter)
	}
	if cfg.MQTT.ClientID != "grinder" {
		t.Errorf("expected default client id, got %q", cfg.MQTT.ClientID)
	}

	mc := cfg.MachineConfig()
	if mc.GrindLimit != 45*time.Second || mc.ReferenceGrams != 0 || mc.CalibrationSamples != 10 {
		t.Errorf("unexpected machine config %+v", mc)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("grinder:\n  varient: time\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "varient") {
		t.Errorf("expected error to name the field, got %v", err)
	}
}

func TestParseRejectsTrailingDocument(t *testing.T) {
	_, err := Parse([]byte("grinder:\n  variant: time\n---\ngrinder:\n  variant: weight\n"))
	if err == nil {
		t.Fatal("expected error for trailing document")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":8080\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.HTTP.Addr)
	}

	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateSettleWithoutInterrupt(t *testing.T) {
	cfg := Default()
	cfg.GPIO.InterruptPin = -1
	cfg.Loop.Settle = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected short settle accepted when polling every cycle, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown variant", func(c *Config) { c.Grinder.Variant = "volume" }},
		{"zero grind limit", func(c *Config) { c.Grinder.GrindLimit = 0 }},
		{"zero sleep", func(c *Config) { c.Grinder.SleepAfter = 0 }},
		{"zero poll", func(c *Config) { c.Loop.Poll = 0 }},
		{"offset past image", func(c *Config) { c.Settings.Offset = c.Settings.Size }},
		{"expander address", func(c *Config) { c.I2C.ExpanderAddress = 0x3C }},
		{"display collides", func(c *Config) { c.I2C.DisplayAddress = c.I2C.ExpanderAddress }},
		{"shared panel pin", func(c *Config) { c.Panel.Button = c.Panel.RotaryA }},
		{"interrupt on actuator", func(c *Config) { c.GPIO.InterruptPin = c.GPIO.ActuatorPin }},
		{"settle shorter than debounce", func(c *Config) {
			c.Loop.Settle = 5 * time.Millisecond
			c.Loop.Debounce = 10 * time.Millisecond
		}},
		{"scale pins equal", func(c *Config) {
			c.Grinder.Variant = "weight"
			c.Scale.DataPin = c.Scale.ClockPin
		}},
		{"zero scale factor", func(c *Config) {
			c.Grinder.Variant = "weight"
			c.Scale.Factor = 0
		}},
		{"short watchdog", func(c *Config) {
			c.Watchdog.Enabled = true
			c.Watchdog.Timeout = 500 * time.Millisecond
		}},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	if w := cfg.Warnings(); len(w) != 1 {
		t.Errorf("expected grind limit warning for the default 30s limit, got %v", w)
	}
	cfg.Grinder.GrindLimit = 90 * time.Second
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("expected no warnings with a long limit, got %v", w)
	}
	cfg.Grinder.Variant = "weight"
	cfg.Grinder.GrindLimit = 30 * time.Second
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("expected no grind limit warning for the weight variant, got %v", w)
	}
}

func TestFlagOverrides(t *testing.T) {
	cfg := Default()
	variant := "weight"
	lockout := true
	level := "debug"
	FlagOverrides{Variant: &variant, Lockout: &lockout, LogLevel: &level}.Apply(&cfg)

	if cfg.Grinder.Variant != "weight" || !cfg.Grinder.Lockout || cfg.Logging.Level != "debug" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Grinder, cfg.Logging)
	}
	if cfg.MQTT.Broker != "" {
		t.Error("expected unset override to leave broker alone")
	}
	FlagOverrides{}.Apply(nil)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf strings.Builder
	logger, err := NewLogger(&buf, "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "state", "LOCKOUT")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info suppressed at warn level")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "state=LOCKOUT") {
		t.Errorf("unexpected log output %q", out)
	}
}
