// Package telegram renders alarm events as Telegram messages with
// inline Stop/Snooze buttons. It is a pure consumer of the event bus;
// the alarm core never depends on it.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"chimed/internal/alarm"
	"chimed/internal/eventbus"
	logx "chimed/pkg/logx"
)

const (
	uniqueStop   = "alarm_stop"
	uniqueSnooze = "alarm_snooze"
)

type Config struct {
	Token  string
	ChatID int64

	// Snooze is the duration bound to the snooze button.
	Snooze time.Duration

	// RatePerSec limits outbound messages. Ring re-notifications can
	// arrive faster than Telegram tolerates.
	RatePerSec int

	PollTimeout time.Duration
}

type Dialog struct {
	cfg   Config
	store *alarm.Store
	bus   eventbus.Bus
	log   logx.Logger

	bot     *tele.Bot
	limiter *rate.Limiter

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func New(cfg Config, store *alarm.Store, bus eventbus.Bus, log logx.Logger) (*Dialog, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if cfg.Snooze <= 0 {
		cfg.Snooze = 5 * time.Minute
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}

	d := &Dialog{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
	d.registerHandlers()
	return d, nil
}

func (d *Dialog) registerHandlers() {
	d.bot.Handle(&tele.Btn{Unique: uniqueStop}, func(c tele.Context) error {
		id := strings.TrimSpace(c.Data())
		err := d.store.Acknowledge(id, alarm.AckStop)
		switch {
		case errors.Is(err, alarm.ErrNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "alarm is gone"})
		case err != nil:
			d.log.Warn("stop button failed", logx.String("id", id), logx.Err(err))
			return c.Respond(&tele.CallbackResponse{Text: "failed, try again"})
		}
		if m := c.Message(); m != nil {
			_ = c.Edit(m.Text + "\n\nstopped")
		}
		return c.Respond(&tele.CallbackResponse{Text: "stopped"})
	})

	d.bot.Handle(&tele.Btn{Unique: uniqueSnooze}, func(c tele.Context) error {
		id := strings.TrimSpace(c.Data())
		err := d.store.Snooze(id, d.cfg.Snooze)
		switch {
		case errors.Is(err, alarm.ErrNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "alarm is gone"})
		case err != nil:
			d.log.Warn("snooze button failed", logx.String("id", id), logx.Err(err))
			return c.Respond(&tele.CallbackResponse{Text: "cannot snooze"})
		}
		if m := c.Message(); m != nil {
			_ = c.Edit(m.Text + "\n\nsnoozed for " + formatDuration(d.cfg.Snooze))
		}
		return c.Respond(&tele.CallbackResponse{Text: "snoozed"})
	})

	d.bot.Handle("/alarms", func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().ID != d.cfg.ChatID {
			return nil
		}
		views := d.store.Get(alarm.Query{})
		if len(views) == 0 {
			return c.Send("no alarms set")
		}
		var b strings.Builder
		for _, v := range views {
			fmt.Fprintf(&b, "%s  %s", v.Due.Format("Mon 2 Jan 15:04:05"), displayName(v.Name))
			if v.Recurrence != "" {
				fmt.Fprintf(&b, "  (%s)", v.Recurrence)
			}
			if v.Ringing() {
				b.WriteString("  RINGING")
			}
			b.WriteByte('\n')
		}
		return c.Send(b.String())
	})
}

// Start subscribes to the bus and begins polling. Safe to call once;
// subsequent calls are no-ops until Stop.
func (d *Dialog) Start(ctx context.Context) error {
	d.runMu.Lock()
	if d.running {
		d.runMu.Unlock()
		return nil
	}
	d.running = true
	rctx, cancel := context.WithCancel(ctx)
	d.runCancel = cancel
	d.runWG.Add(2)
	d.runMu.Unlock()

	events, unsubscribe := d.bus.Subscribe(64)

	go func() {
		defer d.runWG.Done()
		defer unsubscribe()
		for {
			select {
			case <-rctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				d.handleEvent(rctx, ev)
			}
		}
	}()

	go func() {
		defer d.runWG.Done()
		go func() {
			<-rctx.Done()
			d.bot.Stop()
		}()
		d.log.Info("telegram polling started", logx.Int64("chat_id", d.cfg.ChatID))
		d.bot.Start() // blocks until Stop()
	}()

	return nil
}

func (d *Dialog) Stop(ctx context.Context) error {
	d.runMu.Lock()
	cancel := d.runCancel
	d.runCancel = nil
	wasRunning := d.running
	d.running = false
	d.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	go d.bot.Stop()

	done := make(chan struct{})
	go func() {
		d.runWG.Wait()
		close(done)
	}()

	// Keep shutdown snappy even if the long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		d.log.Info("telegram polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		d.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

func (d *Dialog) handleEvent(ctx context.Context, ev eventbus.Event) {
	n, ok := ev.Data.(alarm.Notification)
	if !ok {
		return
	}
	switch ev.Type {
	case alarm.EventDue, alarm.EventRing:
		d.notify(ctx, n, ev.Type == alarm.EventRing)
	}
}

func (d *Dialog) notify(ctx context.Context, n alarm.Notification, repeat bool) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}

	text := "⏰ " + displayName(n.Name)
	if repeat {
		text += " (still ringing)"
	}
	text += "\n" + n.Due.Format("Mon 2 Jan 15:04:05")
	if n.Recurrence != "" {
		text += "\nrepeats " + n.Recurrence
	}

	markup := d.bot.NewMarkup()
	stop := markup.Data("Stop", uniqueStop, n.ID)
	snooze := markup.Data("Snooze "+formatDuration(d.cfg.Snooze), uniqueSnooze, n.ID)
	markup.Inline(markup.Row(stop, snooze))

	_, err := d.bot.Send(&tele.Chat{ID: d.cfg.ChatID}, text, markup)
	if err != nil {
		d.log.Warn("telegram send failed", logx.String("id", n.ID), logx.Err(err))
	}
}

func displayName(name string) string {
	if name == "" {
		return "alarm"
	}
	return name
}

func formatDuration(d time.Duration) string {
	s := d.Round(time.Second).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
