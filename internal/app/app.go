// Package app wires the daemon together: config, logging, storage,
// the alarm store, and the optional Telegram dialog.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chimed/internal/alarm"
	"chimed/internal/config"
	"chimed/internal/dialog/telegram"
	"chimed/internal/eventbus"
	"chimed/internal/storage"
	logx "chimed/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	rec  storage.Store
	st   *alarm.Store

	dialog *telegram.Dialog

	runMu     sync.Mutex
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	scfg, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	rec, err := storage.Open(scfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	if rec != nil {
		log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
	}

	acfg, err := mapAlarmConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	st := alarm.New(acfg, rec, bus, log.With(logx.String("comp", "alarms")))

	a := &App{
		cfgm: cfgm,
		log:  log,
		logs: logSvc,
		bus:  bus,
		rec:  rec,
		st:   st,
	}

	if cfg.Telegram != nil && cfg.Telegram.Enabled {
		tcfg, err := mapTelegramConfig(cfg.Telegram)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		dlg, err := telegram.New(tcfg, st, bus, log.With(logx.String("comp", "telegram")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		a.dialog = dlg
	}

	return a, nil
}

// Alarms exposes the store for embedding callers.
func (a *App) Alarms() *alarm.Store { return a.st }

func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runMu.Unlock()

	if err := a.st.Load(rctx); err != nil {
		return fmt.Errorf("restore alarms: %w", err)
	}

	if a.dialog != nil {
		if err := a.dialog.Start(rctx); err != nil {
			return err
		}
	}

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapAlarmConfig(cfg); err != nil {
			return err
		}
		if tz := cfg.Alarm.Timezone; tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("alarm.timezone: invalid %q: %w", tz, err)
			}
		}
		if cfg.Telegram != nil {
			if _, err := config.ParseDurationField("telegram.snooze", cfg.Telegram.Snooze); err != nil {
				return err
			}
		}
		if _, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
		return nil
	})

	a.runWG.Add(2)
	go func() {
		defer a.runWG.Done()
		_ = a.cfgm.Watch(rctx)
	}()

	sub := a.cfgm.Subscribe(8)
	go func() {
		defer a.runWG.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-rctx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// coalesce bursts, keep only the newest
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(newCfg)
			}
		}
	}()

	// Event log for observability. Components subscribe themselves for
	// behavior; this one is debug-only.
	events, unsub := a.bus.Subscribe(128)
	a.runWG.Add(1)
	go func() {
		defer a.runWG.Done()
		defer unsub()
		for {
			select {
			case <-rctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	}()

	a.log.Info("started", logx.Int("alarms", len(a.st.Get(alarm.Query{}))))
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(mapLogConfig(cfg))

	acfg, err := mapAlarmConfig(cfg)
	if err != nil {
		// validator should have rejected this; keep previous tunables
		a.log.Warn("invalid alarm config; keeping previous", logx.Err(err))
		return
	}
	a.st.Reconfigure(acfg)
	a.log.Info("config applied",
		logx.Duration("lead_time", acfg.LeadTime),
		logx.Duration("ring_interval", acfg.RingInterval),
		logx.Duration("snooze_max", acfg.SnoozeMax))
}

func (a *App) Stop(ctx context.Context) {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
	}

	if a.dialog != nil {
		if err := a.dialog.Stop(ctx); err != nil {
			a.log.Warn("telegram stop", logx.Err(err))
		}
	}

	a.st.Shutdown()

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if a.rec != nil {
		if err := a.rec.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapAlarmConfig(cfg *config.Config) (alarm.Config, error) {
	lead, err := config.ParseDurationField("alarm.lead_time", cfg.Alarm.LeadTime)
	if err != nil {
		return alarm.Config{}, err
	}
	ring, err := config.ParseDurationField("alarm.ring_interval", cfg.Alarm.RingInterval)
	if err != nil {
		return alarm.Config{}, err
	}
	snooze, err := config.ParseDurationField("alarm.snooze_max", cfg.Alarm.SnoozeMax)
	if err != nil {
		return alarm.Config{}, err
	}
	return alarm.Config{
		LeadTime:     lead,
		RingInterval: ring,
		SnoozeMax:    snooze,
		Timezone:     cfg.Alarm.Timezone,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapTelegramConfig(tc *config.TelegramConfig) (telegram.Config, error) {
	snooze, err := config.ParseDurationField("telegram.snooze", tc.Snooze)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:      tc.Token,
		ChatID:     tc.ChatID,
		Snooze:     snooze,
		RatePerSec: tc.RatePerSec,
	}, nil
}
