// Package scheduler sends the daily digest prompt to registered users.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"city_bot/internal/storage"
)

// Sender delivers the daily prompt to a chat.
type Sender interface {
	SendDailyPrompt(chatID int64) error
}

// Scheduler fires once a day at a fixed local time.
type Scheduler struct {
	store  storage.Storage
	sender Sender
	log    *slog.Logger
	loc    *time.Location
	hour   int
	minute int
	now    func() time.Time
	tick   time.Duration
	pause  time.Duration
	next   time.Time
}

// New creates a Scheduler that notifies at the "HH:MM" time at in loc.
func New(store storage.Storage, sender Sender, at string, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	h, m, err := ParseClock(at)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		store:  store,
		sender: sender,
		log:    log,
		loc:    loc,
		hour:   h,
		minute: m,
		now:    time.Now,
		tick:   time.Minute,
		// Rate limit: ~20 messages/sec max for Telegram
		pause: 50 * time.Millisecond,
	}, nil
}

// SetTickInterval overrides the default 1-minute polling interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetClock overrides the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.next = NextRun(s.now(), s.hour, s.minute, s.loc)
	s.log.Info("daily prompt scheduled", "next", s.next)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	if now.Before(s.next) {
		return
	}
	sent := s.notifyAll(ctx)
	s.next = NextRun(now, s.hour, s.minute, s.loc)
	s.log.Info("daily prompt sent", "count", sent, "next", s.next)
}

// notifyAll sends the prompt to every user who registered at least a day ago.
func (s *Scheduler) notifyAll(ctx context.Context) int {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.log.Error("list users", "error", err)
		return 0
	}

	now := s.now()
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent
		}
		if u.IsNew(now) {
			continue
		}
		if err := s.sender.SendDailyPrompt(u.ID); err != nil {
			s.log.Error("send daily prompt", "user_id", u.ID, "error", err)
			continue
		}
		sent++

		if s.pause > 0 {
			time.Sleep(s.pause)
		}
	}
	return sent
}

// NextRun returns the first moment after now that is hour:minute in loc.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	run := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !run.After(local) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
