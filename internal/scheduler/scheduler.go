// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/mood"
)

// DefaultReapSchedule runs the session janitor every five minutes.
const DefaultReapSchedule = "@every 5m"

// Scheduler manages the cron jobs of a running server.
type Scheduler struct {
	cron     *cron.Cron
	sessions *mood.Registry
	bus      *bus.Bus
	idle     time.Duration
}

// New creates a scheduler that reaps sessions idle for longer than idle.
// An empty schedule uses DefaultReapSchedule.
func New(sessions *mood.Registry, b *bus.Bus, schedule string, idle time.Duration) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	s := &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		sessions: sessions,
		bus:      b,
		idle:     idle,
	}
	if idle <= 0 {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.ReapIdle() }); err != nil {
		return nil, fmt.Errorf("schedule session reaper %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// ReapIdle drops idle sessions now and reports how many were removed.
func (s *Scheduler) ReapIdle() int {
	n := s.sessions.Reap(s.idle)
	if n == 0 {
		return 0
	}
	log.Info().Int("reaped", n).Dur("idle", s.idle).Msg("idle sessions reaped")

	ev := bus.NewEvent(bus.EventSessionsReaped)
	ev.Count = n
	ev.Details = fmt.Sprintf("%d sessions idle for more than %s", n, s.idle)
	s.bus.Publish(ev)
	return n
}
