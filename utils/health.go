package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger checks a single backend.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Status    string          `json:"status"`
	Services  map[string]bool `json:"services"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor keeps the latest health snapshot of a set of named backends.
type HealthMonitor struct {
	checks   map[string]Pinger
	interval time.Duration

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(checks map[string]Pinger, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		checks:   checks,
		interval: interval,
		current:  HealthStatus{Status: "unknown", Services: map[string]bool{}},
	}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check pings every backend once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	services := make(map[string]bool, len(m.checks))
	status := "ok"
	for name, ping := range m.checks {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := ping(pctx)
		cancel()
		services[name] = err == nil
		if err != nil {
			status = "degraded"
			zap.L().Warn("Health check failed", zap.String("service", name), zap.Error(err))
		}
	}

	snapshot := HealthStatus{Status: status, Services: services, CheckedAt: time.Now().UTC()}
	m.mu.Lock()
	m.current = snapshot
	m.mu.Unlock()
	return snapshot
}

// Start performs periodic health checks until ctx is done.
func (m *HealthMonitor) Start(ctx context.Context) {
	go func() {
		m.Check(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
