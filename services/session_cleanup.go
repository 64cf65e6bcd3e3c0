package services

import (
	"context"
	"time"

	"github.com/podbrah/podbrah-backend/logger"
)

// Sweep drops expired sessions and returns how many were removed. Locked
// sessions are left for the next run.
func (m *MemorySessionStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.sessions {
		if m.locks[id] || !now.After(entry.expires) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	return removed
}

type Sweeper interface {
	Sweep() int
}

// StartSessionCleanup sweeps once immediately, then on every interval until ctx ends.
func StartSessionCleanup(ctx context.Context, s Sweeper, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	run := func() {
		if n := s.Sweep(); n > 0 {
			log.Info("expired wizard sessions removed", "count", n)
		}
	}
	run()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	log.Info("session cleanup started", "interval", interval.String())
}
