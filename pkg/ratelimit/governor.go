package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sahyadri/presensi/pkg/logger"
	"github.com/sahyadri/presensi/pkg/validator"
)

type GovernorConfig struct {
	// Window is the trailing period a caller is measured over.
	Window time.Duration `validate:"required"`

	// Cap is the maximum number of allowed requests per caller per Window.
	Cap int `validate:"required,min=1"`

	// SweepInterval is how often idle callers are evicted. Zero disables the
	// background sweep (useful in tests).
	SweepInterval time.Duration `validate:"-"`

	// Now is the clock source, nil means time.Now.
	Now func() time.Time `validate:"-"`

	Log logger.Logger `validate:"-"`
}

// Governor enforces a per-caller request cap over a sliding time window.
// This protects the service from caller abuse; it is independent from the
// dispatcher's outbound inter-message pacing.
type Governor struct {
	Config GovernorConfig

	lock    sync.Mutex
	windows map[string][]time.Time
	stop    chan struct{}
	stopped sync.Once
}

func NewGovernor(cfg GovernorConfig) (*Governor, error) {
	err := validator.Validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("rate governor config error: %w", err)
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Log == nil {
		cfg.Log = &logger.Noop{}
	}

	g := &Governor{
		Config:  cfg,
		windows: map[string][]time.Time{},
		stop:    make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go g.sweepLoop()
	}

	return g, nil
}

// Allow reports whether callerID may make another request now. On allow the
// current timestamp is recorded against the caller's window.
func (g *Governor) Allow(callerID string) bool {
	now := g.Config.Now()
	cutoff := now.Add(-g.Config.Window)

	g.lock.Lock()
	defer g.lock.Unlock()

	window := g.windows[callerID]

	// drop entries that fell out of the trailing window
	live := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= g.Config.Cap {
		g.windows[callerID] = live
		return false
	}

	g.windows[callerID] = append(live, now)
	return true
}

// sweepLoop evicts callers with no activity inside the window so the map
// stays bounded under many distinct callers.
func (g *Governor) sweepLoop() {
	ticker := time.NewTicker(g.Config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep()
		case <-g.stop:
			return
		}
	}
}

func (g *Governor) sweep() {
	cutoff := g.Config.Now().Add(-g.Config.Window)

	g.lock.Lock()
	defer g.lock.Unlock()

	evicted := 0
	for caller, window := range g.windows {
		idle := true
		for _, ts := range window {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}

		if idle {
			delete(g.windows, caller)
			evicted++
		}
	}

	if evicted > 0 {
		g.Config.Log.Debug(context.Background(), "rate governor sweep",
			logger.KV("evicted_callers", evicted),
			logger.KV("active_callers", len(g.windows)),
		)
	}
}

// Len returns the number of callers currently tracked.
func (g *Governor) Len() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.windows)
}

// Close stops the background sweep. Safe to call more than once.
func (g *Governor) Close() error {
	g.stopped.Do(func() {
		close(g.stop)
	})
	return nil
}
