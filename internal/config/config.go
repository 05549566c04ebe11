// Package config holds the daemon configuration: defaults, YAML file loading,
// command line overrides and validation. It is resolved once at startup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/grinder/internal/display"
	"github.com/sweeney/grinder/internal/gpio"
	"github.com/sweeney/grinder/internal/i2c"
	"github.com/sweeney/grinder/internal/logic"
	"github.com/sweeney/grinder/internal/mqtt"
	"github.com/sweeney/grinder/internal/panel"
	"github.com/sweeney/grinder/internal/scale"
	"github.com/sweeney/grinder/internal/settings"
	"github.com/sweeney/grinder/internal/watchdog"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/grinder/config.yaml"

type Config struct {
	Grinder  GrinderConfig  `yaml:"grinder"`
	Loop     LoopConfig     `yaml:"loop"`
	Settings SettingsConfig `yaml:"settings"`
	I2C      I2CConfig      `yaml:"i2c"`
	Panel    panel.Pins     `yaml:"panel"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Scale    ScaleConfig    `yaml:"scale"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Diag     DiagConfig     `yaml:"diag"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Journal  JournalConfig  `yaml:"journal"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type GrinderConfig struct {
	Variant     string        `yaml:"variant"` // "time" or "weight"
	Lockout     bool          `yaml:"lockout"`
	GrindLimit  time.Duration `yaml:"grind_limit"`
	SleepAfter  time.Duration `yaml:"sleep_after"`
	ResetWindow time.Duration `yaml:"reset_window"`
}

type LoopConfig struct {
	Poll            time.Duration `yaml:"poll"`
	Debounce        time.Duration `yaml:"debounce"`
	LockoutThrottle time.Duration `yaml:"lockout_throttle"`
	// Settle is how long the panel keeps being polled after an interrupt so
	// the debouncer sees the line come to rest.
	Settle time.Duration `yaml:"settle"`
}

type SettingsConfig struct {
	Path   string `yaml:"path"`
	Offset int    `yaml:"offset"`
	Size   int    `yaml:"size"`
}

type I2CConfig struct {
	Device          string `yaml:"device"`
	ExpanderAddress uint8  `yaml:"expander_address"`
	DisplayAddress  uint8  `yaml:"display_address"`
	// Display false runs without the OLED.
	Display bool `yaml:"display"`
}

type GPIOConfig struct {
	Chip        string `yaml:"chip"`
	ActuatorPin int    `yaml:"actuator_pin"`
	// InterruptPin < 0 polls the expander every cycle instead.
	InterruptPin int `yaml:"interrupt_pin"`
}

type ScaleConfig struct {
	ClockPin int `yaml:"clock_pin"`
	DataPin  int `yaml:"data_pin"`
	// Factor is raw counts per gram, as printed by -calibrate.
	Factor float64 `yaml:"factor"`
	// ReferenceGrams > 0 recalibrates against that weight before every
	// grind; zero only tares.
	ReferenceGrams float64 `yaml:"reference_grams"`
	Samples        int     `yaml:"samples"`
	ReadSamples    int     `yaml:"read_samples"`
}

type WatchdogConfig struct {
	Enabled bool          `yaml:"enabled"`
	Device  string        `yaml:"device"`
	Timeout time.Duration `yaml:"timeout"`
}

type DiagConfig struct {
	// Serial is the diagnostic console device; empty writes to stderr.
	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`
}

type MQTTConfig struct {
	// Broker empty disables MQTT.
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Buffer    int           `yaml:"buffer"`
}

type HTTPConfig struct {
	// Addr empty disables the status server.
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	// Path empty disables the journal.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Grinder: GrinderConfig{
			Variant:     string(logic.ModeTime),
			Lockout:     false,
			GrindLimit:  logic.DefaultGrindLimit,
			SleepAfter:  logic.DefaultSleepGrace,
			ResetWindow: logic.DefaultResetWindow,
		},
		Loop: LoopConfig{
			Poll:            5 * time.Millisecond,
			Debounce:        logic.DefaultDebounce,
			LockoutThrottle: 250 * time.Millisecond,
			Settle:          50 * time.Millisecond,
		},
		Settings: SettingsConfig{
			Path:   "/var/lib/grinder/eeprom.bin",
			Offset: settings.DefaultOffset,
			Size:   settings.DefaultEEPROMSize,
		},
		I2C: I2CConfig{
			Device:          i2c.DefaultDevice,
			ExpanderAddress: panel.DefaultAddress,
			DisplayAddress:  display.DefaultAddress,
			Display:         true,
		},
		Panel: panel.DefaultPins,
		GPIO: GPIOConfig{
			Chip:         gpio.DefaultChip,
			ActuatorPin:  gpio.DefaultActuatorPin,
			InterruptPin: gpio.DefaultInterruptPin,
		},
		Scale: ScaleConfig{
			ClockPin:    5,
			DataPin:     6,
			Factor:      scale.DefaultFactor,
			Samples:     10,
			ReadSamples: 1,
		},
		Watchdog: WatchdogConfig{
			Enabled: false,
			Device:  watchdog.DefaultDevice,
			Timeout: watchdog.DefaultTimeout,
		},
		Diag: DiagConfig{
			Baud: 9600,
		},
		MQTT: MQTTConfig{
			ClientID:  "grinder",
			Heartbeat: 15 * time.Minute,
			Buffer:    mqtt.DefaultBufferSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command line values; nil means not set.
type FlagOverrides struct {
	Variant  *string
	Lockout  *bool
	Broker   *string
	HTTPAddr *string
	LogLevel *string
}

func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Variant != nil {
		cfg.Grinder.Variant = *o.Variant
	}
	if o.Lockout != nil {
		cfg.Grinder.Lockout = *o.Lockout
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

func (c *Config) Validate() error {
	switch logic.Mode(c.Grinder.Variant) {
	case logic.ModeTime, logic.ModeWeight:
	default:
		return fmt.Errorf("grinder.variant must be %q or %q", logic.ModeTime, logic.ModeWeight)
	}
	if c.Grinder.GrindLimit <= 0 {
		return errors.New("grinder.grind_limit must be > 0")
	}
	if c.Grinder.SleepAfter <= 0 {
		return errors.New("grinder.sleep_after must be > 0")
	}
	if c.Grinder.ResetWindow <= 0 {
		return errors.New("grinder.reset_window must be > 0")
	}

	if c.Loop.Poll <= 0 {
		return errors.New("loop.poll must be > 0")
	}
	if c.Loop.Debounce <= 0 {
		return errors.New("loop.debounce must be > 0")
	}
	if c.Loop.LockoutThrottle < 0 || c.Loop.Settle < 0 {
		return errors.New("loop.lockout_throttle and loop.settle must be >= 0")
	}

	if c.Settings.Path == "" {
		return errors.New("settings.path must not be empty")
	}
	if c.Settings.Offset < 0 || c.Settings.Offset >= c.Settings.Size {
		return fmt.Errorf("settings.offset %d outside image of %d bytes", c.Settings.Offset, c.Settings.Size)
	}

	if c.I2C.Device == "" {
		return errors.New("i2c.device must not be empty")
	}
	if c.I2C.ExpanderAddress < 0x20 || c.I2C.ExpanderAddress > 0x27 {
		return fmt.Errorf("i2c.expander_address %#x outside 0x20-0x27", c.I2C.ExpanderAddress)
	}
	if c.I2C.Display && c.I2C.DisplayAddress == c.I2C.ExpanderAddress {
		return errors.New("i2c.display_address collides with expander_address")
	}
	if err := c.Panel.Validate(); err != nil {
		return err
	}

	if c.GPIO.Chip == "" {
		return errors.New("gpio.chip must not be empty")
	}
	if c.GPIO.ActuatorPin < 0 {
		return errors.New("gpio.actuator_pin must be >= 0")
	}
	if c.GPIO.InterruptPin == c.GPIO.ActuatorPin {
		return errors.New("gpio.interrupt_pin collides with actuator_pin")
	}
	// With an interrupt line the panel is only sampled during the settle
	// window, so it must outlast the debounce lockout to see a release.
	if c.GPIO.InterruptPin >= 0 && c.Loop.Settle < c.Loop.Debounce {
		return fmt.Errorf("loop.settle %s must be >= loop.debounce %s when gpio.interrupt_pin is set",
			c.Loop.Settle, c.Loop.Debounce)
	}

	if logic.Mode(c.Grinder.Variant) == logic.ModeWeight {
		if c.Scale.ClockPin < 0 || c.Scale.DataPin < 0 || c.Scale.ClockPin == c.Scale.DataPin {
			return errors.New("scale.clock_pin and scale.data_pin must be distinct and >= 0")
		}
		if c.Scale.Factor == 0 {
			return errors.New("scale.factor must not be zero")
		}
		if c.Scale.ReferenceGrams < 0 {
			return errors.New("scale.reference_grams must be >= 0")
		}
		if c.Scale.Samples <= 0 || c.Scale.ReadSamples <= 0 {
			return errors.New("scale.samples and scale.read_samples must be > 0")
		}
	}

	if c.Watchdog.Enabled && c.Watchdog.Timeout < time.Second {
		return errors.New("watchdog.timeout must be >= 1s")
	}
	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt.heartbeat must be >= 0")
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Warnings lists settings that are valid but probably not intended.
func (c Config) Warnings() []string {
	var out []string
	if logic.Mode(c.Grinder.Variant) == logic.ModeTime &&
		c.Grinder.GrindLimit <= logic.MaxSeconds*time.Second {
		out = append(out, fmt.Sprintf("grinder.grind_limit %s is shorter than the longest timed grind (%ds); long grinds will lock out",
			c.Grinder.GrindLimit, logic.MaxSeconds))
	}
	if c.Watchdog.Enabled && c.Loop.LockoutThrottle >= c.Watchdog.Timeout {
		out = append(out, "loop.lockout_throttle is not shorter than watchdog.timeout")
	}
	return out
}

// Variant returns the logic variant described by the config.
func (c Config) Variant() logic.Variant {
	return logic.Variant{Mode: logic.Mode(c.Grinder.Variant), Lockout: c.Grinder.Lockout}
}

// MachineConfig returns the state machine settings.
func (c Config) MachineConfig() logic.MachineConfig {
	return logic.MachineConfig{
		Variant:            c.Variant(),
		SleepGrace:         c.Grinder.SleepAfter,
		GrindLimit:         c.Grinder.GrindLimit,
		ResetWindow:        c.Grinder.ResetWindow,
		ReferenceGrams:     c.Scale.ReferenceGrams,
		CalibrationSamples: c.Scale.Samples,
	}
}
