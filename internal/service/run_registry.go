package service

import (
	"context"
	"sync"
	"time"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/mailmerge"
)

// activeRun tracks a background run until its report is persisted.
type activeRun struct {
	id        string
	total     int
	startedAt time.Time
	cancel    context.CancelFunc

	mu        sync.Mutex
	delivered int
	failed    int
}

func (r *activeRun) observe(o mailmerge.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Delivered() {
		r.delivered++
	} else {
		r.failed++
	}
}

func (r *activeRun) snapshot() *dto.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &dto.RunReport{
		RunID:  r.id,
		Status: dto.RunStateRunning,
		Summary: dto.RunSummary{
			Total:     r.total,
			Delivered: r.delivered,
			Failed:    r.failed,
		},
		StatusSync: dto.StatusSyncPending,
		StartedAt:  r.startedAt,
	}
}

type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*activeRun
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*activeRun)}
}

func (g *runRegistry) add(r *activeRun) {
	g.mu.Lock()
	g.runs[r.id] = r
	g.mu.Unlock()
}

func (g *runRegistry) get(id string) (*activeRun, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.runs[id]
	return r, ok
}

func (g *runRegistry) remove(id string) {
	g.mu.Lock()
	delete(g.runs, id)
	g.mu.Unlock()
}

func (g *runRegistry) len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.runs)
}

func (g *runRegistry) cancelAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range g.runs {
		r.cancel()
	}
}
