package main

import (
	"log/slog"
	"time"

	"github.com/sweeney/grinder/internal/config"
	"github.com/sweeney/grinder/internal/diag"
	"github.com/sweeney/grinder/internal/display"
	"github.com/sweeney/grinder/internal/gpio"
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

// devices are the collaborators the loop drives. Optional ones are nil when
// disabled: wakeup (poll every cycle), store, scale, journal and web.
type devices struct {
	reader     panel.Reader
	wakeup     *panel.Wakeup
	actuator   gpio.Actuator
	screen     display.Renderer
	store      *settings.Store
	scale      scale.Scale
	kicker     watchdog.Kicker
	console    *diag.Console
	pub        mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	journal    *journal.Journal
	tracker    *status.Tracker
	web        *web.Server
}

type loop struct {
	devices

	cfg       config.Config
	logger    *slog.Logger
	machine   *logic.Machine
	panel     *logic.Panel
	heartbeat *status.Heartbeat

	// sleep blocks the loop while in Lockout.
	sleep func(time.Duration)

	settleUntil time.Time

	// tareFailed holds a failed tare until the next calibration, so the
	// grind it preceded is stopped.
	tareFailed bool

	// Fault flags so each outage is logged once.
	linkDown    bool
	actuatorErr bool
}

func newLoop(cfg config.Config, logger *slog.Logger, d devices, start time.Time) *loop {
	var src logic.AmountSource
	if d.store != nil {
		src = d.store
	}
	return &loop{
		devices:   d,
		cfg:       cfg,
		logger:    logger,
		machine:   logic.NewMachine(cfg.MachineConfig(), src, start),
		panel:     logic.NewPanel(cfg.Loop.Debounce),
		heartbeat: status.NewHeartbeat(cfg.MQTT.Heartbeat, start),
		sleep:     time.Sleep,
	}
}

// start announces the boot on every sink.
func (l *loop) start(now time.Time) {
	if err := l.console.Banner(version); err != nil {
		l.logger.Warn("diagnostic console write failed", "err", err)
	}
	l.logger.Info("started",
		"version", version,
		"variant", l.cfg.Grinder.Variant,
		"lockout", l.cfg.Grinder.Lockout,
		"poll", l.cfg.Loop.Poll,
		"debounce", l.cfg.Loop.Debounce,
		"broker", l.cfg.MQTT.Broker,
		"heartbeat", l.cfg.MQTT.Heartbeat,
	)

	if l.journal != nil {
		if err := l.journal.Boot(now, version); err != nil {
			l.logger.Warn("journal write failed", "err", err)
		}
	}

	l.publishSystem(now, "STARTUP", "", true)
}

// stop de-energizes the relay and publishes SHUTDOWN with the given reason.
func (l *loop) stop(now time.Time, reason string) {
	if err := l.actuator.Set(false); err != nil {
		l.logger.Error("actuator release failed", "err", err)
	}
	if l.journal != nil {
		if err := l.journal.Shutdown(now, reason); err != nil {
			l.logger.Warn("journal write failed", "err", err)
		}
	}
	l.publishSystem(now, "SHUTDOWN", reason, true)
}

func (l *loop) publishSystem(now time.Time, event, reason string, retained bool) {
	l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	snap := l.tracker.Snapshot()
	err := l.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		l.logger.Warn("failed to publish system event", "event", event, "err", err)
		return
	}
	l.logger.Debug("published system event", "event", event)
}

// cycle runs one control cycle: sample inputs, step the machine, then
// execute its effects in order.
func (l *loop) cycle(now time.Time) error {
	if err := l.kicker.Kick(); err != nil {
		l.logger.Warn("watchdog kick failed", "err", err)
	}

	in := logic.Input{Now: now}
	if sample, read, err := l.readPanel(now); read {
		if err != nil {
			in.LinkDown = true
			if !l.linkDown {
				l.logger.Error("panel read failed", "err", err)
				l.fault(now, "panel: "+err.Error())
			}
			l.linkDown = true
		} else {
			if l.linkDown {
				l.logger.Info("panel link restored")
			}
			l.linkDown = false
			in.Events = l.panel.Process(sample.A, sample.Dir, sample.Button, now)
		}
	}

	if l.scale != nil && l.machine.State() == logic.StateGrinding {
		g, err := l.scale.ReadGrams(l.cfg.Scale.ReadSamples)
		if err != nil {
			l.logger.Error("scale read failed", "err", err)
			l.fault(now, "scale: "+err.Error())
			in.ScaleFault = true
		}
		in.Grams = g
		if l.tareFailed {
			in.ScaleFault = true
		}
	}

	out := l.machine.Step(in)

	if out.Calibrate != nil {
		l.calibrate(now, *out.Calibrate)
	}
	if err := l.actuator.Set(out.Actuator); err != nil {
		if !l.actuatorErr {
			l.logger.Error("actuator write failed", "enabled", out.Actuator, "err", err)
			l.fault(now, "actuator: "+err.Error())
		}
		l.actuatorErr = true
	} else {
		l.actuatorErr = false
	}
	if out.Redraw {
		if err := l.screen.Render(out.Message.Text(), out.Message.Font()); err != nil {
			l.logger.Warn("display update failed", "err", err)
		}
	}
	if out.Persist != nil && l.store != nil {
		if err := l.store.Save(*out.Persist); err != nil {
			l.logger.Warn("persist amount failed", "amount", *out.Persist, "err", err)
		}
	}

	for _, tr := range out.Transitions {
		l.report(tr)
	}

	l.tracker.Update(l.machine, out)
	l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	if len(out.Transitions) > 0 && l.web != nil {
		l.web.Publish()
	}

	if l.heartbeat.Due(now) {
		c := l.machine.Counts()
		l.logger.Info("heartbeat",
			"state", l.machine.State().String(),
			"grinds_started", c.GrindsStarted,
			"grinds_completed", c.GrindsCompleted,
			"lockouts", c.Lockouts,
		)
		l.publishSystem(now, "HEARTBEAT", "", false)
	}

	if out.Restart {
		l.logger.Info("reset window elapsed, restarting")
		l.stop(now, "RESTART")
		return errRestart
	}

	if l.machine.State() == logic.StateLockout && l.cfg.Loop.LockoutThrottle > 0 {
		l.sleep(l.cfg.Loop.LockoutThrottle)
	}
	return nil
}

// readPanel reads the panel when there is reason to. Without an interrupt
// line every cycle reads; with one, a pending wakeup or the settle window
// after it does. The lockout variant probes the link every cycle.
func (l *loop) readPanel(now time.Time) (panel.Sample, bool, error) {
	var (
		sample panel.Sample
		err    error
		read   bool
	)
	doRead := func() {
		sample, err = l.reader.Read()
		read = true
	}

	switch {
	case l.wakeup == nil:
		doRead()
	case l.wakeup.Drain(doRead):
		l.settleUntil = now.Add(l.cfg.Loop.Settle)
	case l.cfg.Grinder.Lockout, now.Before(l.settleUntil):
		doRead()
	}
	return sample, read, err
}

func (l *loop) calibrate(now time.Time, req logic.CalibrateRequest) {
	if l.scale == nil {
		return
	}
	l.tareFailed = false
	if err := l.scale.Tare(req.Samples); err != nil {
		l.logger.Error("scale tare failed", "err", err)
		l.fault(now, "scale tare: "+err.Error())
		l.tareFailed = true
		return
	}
	if req.ReferenceGrams <= 0 {
		return
	}
	if err := l.scale.CalibrateAgainstKnownWeight(req.ReferenceGrams, req.Samples); err != nil {
		l.logger.Error("scale calibration failed", "grams", req.ReferenceGrams, "err", err)
		l.fault(now, "scale calibrate: "+err.Error())
	}
}

// report fans a transition out to every sink. Sink failures are logged and
// never stop the loop.
func (l *loop) report(tr logic.Transition) {
	if tr.Reason == logic.ReasonUnexpected {
		l.logger.Warn("unexpected state", "state", uint8(tr.From))
	}
	l.logger.Info("state change",
		"from", tr.From.String(),
		"to", tr.To.String(),
		"reason", tr.Reason,
		"amount", tr.Amount,
	)

	if err := l.console.Transition(tr); err != nil {
		l.logger.Warn("diagnostic console write failed", "err", err)
	}
	if err := l.pub.Publish(tr); err != nil {
		l.logger.Warn("publish error", "err", err)
	}
	if l.journal != nil {
		if err := l.journal.Transition(tr); err != nil {
			l.logger.Warn("journal write failed", "err", err)
		}
	}
	l.tracker.Record(tr)
}

func (l *loop) fault(now time.Time, detail string) {
	if l.journal == nil {
		return
	}
	if err := l.journal.Fault(now, detail); err != nil {
		l.logger.Warn("journal write failed", "err", err)
	}
}
