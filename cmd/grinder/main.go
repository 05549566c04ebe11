// Command grinder runs the coffee grinder controller: it reads the front
// panel, drives the motor relay and the display, and reports state changes.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/grinder/internal/config"
	"github.com/sweeney/grinder/internal/diag"
	"github.com/sweeney/grinder/internal/display"
	"github.com/sweeney/grinder/internal/gpio"
	"github.com/sweeney/grinder/internal/i2c"
	"github.com/sweeney/grinder/internal/journal"
	"github.com/sweeney/grinder/internal/logic"
	"github.com/sweeney/grinder/internal/mqtt"
	"github.com/sweeney/grinder/internal/panel"
	"github.com/sweeney/grinder/internal/scale"
	"github.com/sweeney/grinder/internal/settings"
	"github.com/sweeney/grinder/internal/status"
	"github.com/sweeney/grinder/internal/watchdog"
	"github.com/sweeney/grinder/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errRestart is returned by runLoop when the machine asks for a re-exec.
var errRestart = errors.New("restart requested")

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	printState := flag.Bool("print-state", false, "Print panel lines and stored amount, then exit")
	calibrate := flag.Bool("calibrate", false, "Measure the scale factor against a reference weight, then exit")
	showJournal := flag.Bool("journal", false, "Print the state and fault journal, then exit")
	variant := flag.String("variant", "", `Grinder variant override: "time" or "weight"`)
	lockout := flag.Bool("lockout", false, "Enable the panel link probe (lock out on bus failure)")
	broker := flag.String("broker", "", "MQTT broker override (e.g. tcp://192.168.1.200:1883)")
	httpAddr := flag.String("http", "", "HTTP status address override")
	logLevel := flag.String("log-level", "", "Log level override: error, warn, info, debug")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Only flags given on the command line override the file.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			o.Variant = variant
		case "lockout":
			o.Lockout = lockout
		case "broker":
			o.Broker = broker
		case "http":
			o.HTTPAddr = httpAddr
		case "log-level":
			o.LogLevel = logLevel
		}
	})

	err := run(*configPath, o, mode{printState: *printState, calibrate: *calibrate, journal: *showJournal})
	if errors.Is(err, errRestart) {
		err = reexec()
	}
	if err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to defaults when the default path
// does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == config.DefaultPath {
		return config.Default(), nil
	}
	return cfg, err
}

// mode selects a one-shot command instead of the control loop.
type mode struct {
	printState bool
	calibrate  bool
	journal    bool
}

func run(configPath string, overrides config.FlagOverrides, m mode) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := config.NewLogger(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("config", "warning", w)
	}

	if m.journal {
		if cfg.Journal.Path == "" {
			return errors.New("journal.path is not set")
		}
		return dumpJournal(os.Stdout, cfg.Journal.Path)
	}

	// Panel and persisted amount
	bus, err := i2c.Open(cfg.I2C.Device)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer bus.Close()

	reader, err := panel.NewExpander(bus, cfg.I2C.ExpanderAddress, cfg.Panel, cfg.GPIO.InterruptPin >= 0)
	if err != nil {
		return fmt.Errorf("init panel: %w", err)
	}
	defer reader.Close()

	medium, err := settings.OpenEEPROM(cfg.Settings.Path, cfg.Settings.Size)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}
	defer medium.Close()
	lo, hi, def := cfg.Variant().Bounds()
	store := settings.New(medium, cfg.Settings.Offset, settings.Bounds{Default: def, Min: lo, Max: hi})

	if m.printState {
		return printPanelState(os.Stdout, reader, store, cfg.Variant().Unit())
	}

	// Scale
	var sc scale.Scale
	if cfg.Variant().Mode == logic.ModeWeight || m.calibrate {
		src, err := scale.OpenGPIO(cfg.GPIO.Chip, cfg.Scale.ClockPin, cfg.Scale.DataPin)
		if err != nil {
			return fmt.Errorf("init scale: %w", err)
		}
		hx := scale.New(src, cfg.Scale.Factor)
		defer hx.Close()
		if m.calibrate {
			ref := cfg.Scale.ReferenceGrams
			if ref <= 0 {
				ref = scale.DefaultReferenceGrams
			}
			return calibrateScale(os.Stdin, os.Stdout, hx, ref, cfg.Scale.Samples)
		}
		sc = hx
	}

	// Relay. Close drives it inactive on every exit path.
	act, err := gpio.NewRealActuator(cfg.GPIO.Chip, cfg.GPIO.ActuatorPin)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	defer act.Close()

	var screen display.Renderer = display.Discard{}
	if cfg.I2C.Display {
		dev := display.NewSSD1306(bus, uint16(cfg.I2C.DisplayAddress))
		if err := dev.Configure(); err != nil {
			logger.Warn("display unavailable, running headless", "err", err)
		} else {
			screen = display.NewScreen(dev)
		}
	}
	defer screen.Close()

	var kicker watchdog.Kicker = watchdog.Nop{}
	if cfg.Watchdog.Enabled {
		wd, err := watchdog.Open(cfg.Watchdog.Device, cfg.Watchdog.Timeout)
		if err != nil {
			return fmt.Errorf("init watchdog: %w", err)
		}
		kicker = wd
	}
	defer kicker.Close()

	console := diag.NewConsole(os.Stderr)
	if cfg.Diag.Serial != "" {
		console, err = diag.OpenSerial(cfg.Diag.Serial, cfg.Diag.Baud)
		if err != nil {
			return fmt.Errorf("init diagnostic console: %w", err)
		}
		defer console.Close()
	}

	var pub mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.Buffer,
		})
		if err != nil {
			logger.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			// The paho token wait stays off the control loop.
			pub, mqttStatus = mqtt.NewAsync(p, cfg.MQTT.Buffer, logger), p
		}
	}
	defer pub.Close()

	boot := uuid.New()
	var jr *journal.Journal
	if cfg.Journal.Path != "" {
		jr, err = journal.Open(cfg.Journal.Path, boot)
		if err != nil {
			logger.Warn("journal disabled", "path", cfg.Journal.Path, "err", err)
			jr = nil
		} else {
			defer jr.Close()
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Variant:      cfg.Grinder.Variant,
		Lockout:      cfg.Grinder.Lockout,
		PollMs:       cfg.Loop.Poll.Milliseconds(),
		DebounceMs:   cfg.Loop.Debounce.Milliseconds(),
		SleepMs:      cfg.Grinder.SleepAfter.Milliseconds(),
		GrindLimitMs: cfg.Grinder.GrindLimit.Milliseconds(),
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
		BootID:       boot.String(),
	})

	var srv *web.Server
	if cfg.HTTP.Addr != "" {
		srv = web.New(cfg.HTTP.Addr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	var wake *panel.Wakeup
	if cfg.GPIO.InterruptPin >= 0 {
		wake = panel.NewWakeup()
		irq, err := gpio.WatchInterrupt(cfg.GPIO.Chip, cfg.GPIO.InterruptPin, wake.Signal)
		if err != nil {
			return fmt.Errorf("watch panel interrupt: %w", err)
		}
		defer irq.Close()
		// The first cycle reads the panel, which also clears a stale INT.
		wake.Signal()
	}

	l := newLoop(cfg, logger, devices{
		reader:     reader,
		wakeup:     wake,
		actuator:   act,
		screen:     screen,
		store:      store,
		scale:      sc,
		kicker:     kicker,
		console:    console,
		pub:        pub,
		mqttStatus: mqttStatus,
		journal:    jr,
		tracker:    tracker,
		web:        srv,
	}, time.Now())
	l.start(time.Now())

	ticker := time.NewTicker(cfg.Loop.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(l, time.Now, ticker.C, sigCh)
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.logger.Info("received signal, shutting down", "signal", s)
			l.stop(now(), signalName(s))
			return nil

		case <-tick:
			if err := l.cycle(now()); err != nil {
				return err
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// printPanelState reads the panel once and prints the raw line levels and the
// stored amount.
func printPanelState(w io.Writer, r panel.Reader, store *settings.Store, unit byte) error {
	s, err := r.Read()
	if err != nil {
		return fmt.Errorf("read panel: %w", err)
	}
	amount, err := store.Load()
	if err != nil {
		return fmt.Errorf("read stored amount: %w", err)
	}
	fmt.Fprintf(w, "A: %s, DIR: %s, BUTTON: %s, AMOUNT: %d%c\n",
		lineString(s.A), lineString(s.Dir), lineString(s.Button), amount, unit)
	return nil
}

// dumpJournal prints the journal at path, one entry per line, oldest first.
func dumpJournal(w io.Writer, path string) error {
	entries, err := journal.ReadAll(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		boot := e.Boot
		if len(boot) > 8 {
			boot = boot[:8]
		}
		fmt.Fprintf(w, "%s %s %-10s ", e.Timestamp.UTC().Format(time.RFC3339Nano), boot, e.Kind)
		if e.Kind == journal.KindTransition {
			fmt.Fprintf(w, "%s -> %s %s amount=%d\n", e.From, e.To, e.Reason, e.Amount)
		} else {
			fmt.Fprintf(w, "%s\n", e.Detail)
		}
	}
	return nil
}

func lineString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

// calibrateScale walks through a tare and a reference weighing on the
// terminal and prints the resulting factor for the config file.
func calibrateScale(in io.Reader, out io.Writer, hx *scale.HX711, grams float64, samples int) error {
	prompt := bufio.NewScanner(in)
	wait := func(msg string) error {
		fmt.Fprintf(out, "%s, then press Enter: ", msg)
		if !prompt.Scan() {
			if err := prompt.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return errors.New("calibration aborted")
		}
		return nil
	}

	if err := wait("Empty the scale"); err != nil {
		return err
	}
	if err := hx.Tare(samples); err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	if err := wait(fmt.Sprintf("Place the %g g reference weight", grams)); err != nil {
		return err
	}
	if err := hx.CalibrateAgainstKnownWeight(grams, samples); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	fmt.Fprintf(out, "scale:\n  factor: %.3f\n", hx.Factor())
	return nil
}
