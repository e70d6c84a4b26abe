package async

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Go runs fn in a new goroutine with panic recovery.
// Any panic is logged and does not crash the process.
func Go(name string, fn func()) {
	go run(name, fn)
}

func run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("async goroutine panicked",
				slog.String("task", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}

// Group is Go with bookkeeping, so shutdown can wait for in-flight work.
// The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

func (g *Group) Go(name string, fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(name, fn)
	}()
}

// Wait blocks until every goroutine started by g has returned or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
