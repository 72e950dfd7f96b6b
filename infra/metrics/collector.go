package metrics

import (
	"context"

	"github.com/kilianp07/bessarb/core/scheduler"
	"github.com/kilianp07/bessarb/internal/eventbus"
)

// StartEventCollector subscribes to the run event bus and hands every day
// event to handle. It stops when the context is canceled or the bus is
// closed; the returned channel is closed once it has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[scheduler.DayEvent], handle func(scheduler.DayEvent)) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || handle == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				handle(ev)
			}
		}
	}()
	return done
}
