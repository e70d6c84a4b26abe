package health

import (
	"context"
	"fmt"
	"sync"
)

// Status represents a health check result.
type Status struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Pinger is anything readiness can probe: the record store, the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker aggregates health checks for all dependencies.
type Checker struct {
	deps map[string]Pinger
}

// NewChecker creates a health checker over the named dependencies.
// Nil entries are skipped.
func NewChecker(deps map[string]Pinger) *Checker {
	c := &Checker{deps: make(map[string]Pinger, len(deps))}
	for name, p := range deps {
		if p != nil {
			c.deps[name] = p
		}
	}
	return c
}

// Liveness returns basic liveness (process is running).
func (h *Checker) Liveness() Status {
	return Status{Status: "up"}
}

// Readiness pings every dependency concurrently.
func (h *Checker) Readiness(ctx context.Context) Status {
	details := make(map[string]string, len(h.deps))
	allUp := true

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, p := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				details[name] = fmt.Sprintf("down: %v", err)
				allUp = false
				return
			}
			details[name] = "up"
		}()
	}
	wg.Wait()

	status := "up"
	if !allUp {
		status = "degraded"
	}
	return Status{Status: status, Details: details}
}
