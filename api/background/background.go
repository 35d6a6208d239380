package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background tracks goroutines spawned outside the request lifecycle so the
// server can drain them on shutdown.
type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Run executes fn on a tracked goroutine, recovering and logging panics.
func (b *Background) Run(name string, fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithFields(logrus.Fields{
					"task":    name,
					"message": fmt.Sprintf("PANIC [%v]", rec),
					"trace":   string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()

		fn()
	}()
}

// Shutdown blocks until every tracked goroutine finishes or ctx expires.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
