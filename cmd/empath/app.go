package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/config"
	"github.com/normanking/empath/internal/memory"
	"github.com/normanking/empath/internal/metrics"
	"github.com/normanking/empath/internal/mood"
	"github.com/normanking/empath/internal/persona"
	"github.com/normanking/empath/internal/pipeline"
	"github.com/normanking/empath/internal/suggest"
)

// app holds the wired runtime shared by the commands.
type app struct {
	cfg       *config.Config
	store     memory.Store
	writer    *memory.Writer
	bus       *bus.Bus
	collector *metrics.Collector
	sessions  *mood.Registry
	pipeline  *pipeline.Pipeline
}

// newApp opens the memory store and builds the pipeline described by c.
// historySize bounds the bus history; 0 keeps the bus default.
func newApp(ctx context.Context, c *config.Config, historySize int) (*app, error) {
	personas, err := loadPersonas(c.Personas)
	if err != nil {
		return nil, err
	}

	store, err := memory.Open(ctx, memory.Options{
		Backend: c.Memory.Backend,
		Driver:  c.Memory.Driver,
		Path:    c.Memory.Path,
		Redis: memory.RedisConfig{
			Addr:     c.Memory.Redis.Addr,
			Password: c.Memory.Redis.Password,
			DB:       c.Memory.Redis.DB,
			Prefix:   c.Memory.Redis.Prefix,
		},
		MaxPerOwner: c.Memory.MaxPerOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	a := &app{cfg: c, store: store}
	if historySize > 0 {
		a.bus = bus.NewWithHistory(historySize)
	} else {
		a.bus = bus.New()
	}

	// daily counters live next to the records when the store is SQLite
	var daily *metrics.Store
	if sq, ok := store.(*memory.SQLiteStore); ok {
		daily, err = metrics.NewStore(sq.DB())
		if err != nil {
			log.Warn().Err(err).Msg("daily metrics disabled")
			daily = nil
		}
	}
	a.collector = metrics.NewCollector(a.bus, daily)
	a.collector.Start()

	a.writer = memory.NewWriter(store, memory.WriterOptions{
		Workers:   c.Memory.Workers,
		QueueSize: c.Memory.QueueSize,
		Timeout:   c.Memory.WriteTimeout,
		Bus:       a.bus,
	})
	a.sessions = mood.NewRegistry(c.Sessions.HistorySize)

	var rng *rand.Rand
	if c.Pipeline.RandomizeSuggestions {
		seed := c.Pipeline.SuggestionSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	a.pipeline, err = pipeline.New(&pipeline.Config{
		Personas:  personas,
		Sessions:  a.sessions,
		Loader:    memory.NewContextLoader(store, c.Pipeline.RecallLimit, c.Pipeline.RecallTimeout),
		Writer:    a.writer,
		Suggester: suggest.NewGenerator(nil, rng),
		Bus:       a.bus,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Debug().
		Str("backend", c.Memory.Backend).
		Strs("personas", personas.Names()).
		Bool("daily_metrics", daily != nil).
		Msg("pipeline ready")
	return a, nil
}

// Close drains pending memory writes and releases the store.
func (a *app) Close() {
	if a.writer != nil {
		a.writer.Close()
	}
	if a.collector != nil {
		a.collector.Stop()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if err := memory.Close(a.store); err != nil {
		log.Warn().Err(err).Msg("failed to close memory store")
	}
}

// loadPersonas builds the registry from the built-ins plus the persona directory.
func loadPersonas(c config.PersonasConfig) (*persona.Registry, error) {
	reg, err := persona.NewRegistry(persona.NameCompanion)
	if err != nil {
		return nil, err
	}
	extra, err := persona.LoadDir(c.Dir)
	if err != nil {
		return nil, err
	}
	for _, pc := range extra {
		if err := reg.Add(pc); err != nil {
			return nil, fmt.Errorf("persona %q: %w", pc.Name, err)
		}
	}
	if c.Default != "" {
		if err := reg.SetDefault(c.Default); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
