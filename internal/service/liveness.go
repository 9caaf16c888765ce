package service

import (
	"context"
	"log/slog"
	"time"
)

type sweeper interface {
	Sweep(now time.Time) int
}

// LivenessMonitor runs Sweep on a fixed interval until its context ends.
type LivenessMonitor struct {
	sweeper  sweeper
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewLivenessMonitor(s sweeper, interval time.Duration, log *slog.Logger) *LivenessMonitor {
	if interval <= 0 {
		interval = defaultLivenessTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &LivenessMonitor{
		sweeper:  s,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

func (m *LivenessMonitor) Run(ctx context.Context) error {
	const op = "service.liveness.run"
	log := m.log.With(slog.String("op", op))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info("liveness monitor started", slog.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("liveness monitor stopped")
			return nil
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *LivenessMonitor) tick() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("liveness sweep panicked", slog.Any("panic", r))
		}
	}()
	m.sweeper.Sweep(m.now())
}
