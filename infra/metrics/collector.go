package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/thermogrid/core/events"
	coremetrics "github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records part
// transitions on sinks that support them. It stops when the context is
// canceled or the bus is closed. The returned channel is closed once the
// collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.PartEventRecorder)
	if bus == nil || !ok {
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
				if pe, ok := partEvent(ev); ok {
					_ = rec.RecordPartEvent(pe)
				}
			}
		}
	}()
	return done
}

func partEvent(ev events.Event) (coremetrics.PartEvent, bool) {
	now := time.Now()
	switch e := ev.(type) {
	case events.PartFailed:
		return coremetrics.PartEvent{Day: e.Day, PlantID: e.PlantID, Role: e.Role.String(), Kind: e.Kind(), Time: now}, true
	case events.PartRepaired:
		return coremetrics.PartEvent{Day: e.Day, PlantID: e.PlantID, Role: e.Role.String(), Kind: e.Kind(), Time: now}, true
	case events.RepairHurried:
		return coremetrics.PartEvent{Day: e.Day, PlantID: e.PlantID, Role: e.Role.String(), Kind: e.Kind(), Time: now}, true
	case events.PartServiced:
		return coremetrics.PartEvent{Day: e.Day, PlantID: e.PlantID, Role: e.Role.String(), Kind: e.Kind(), Time: now}, true
	}
	return coremetrics.PartEvent{}, false
}
