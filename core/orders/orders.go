// Package orders turns a planned day into per-plant dispatch orders.
package orders

import (
	"context"
	"sync"

	"github.com/kilianp07/thermogrid/core/scheduler"
)

// Order is the energy a plant must deliver on each hour of a day.
type Order struct {
	PlantID string                   `json:"plant_id"`
	Day     int                      `json:"day"`
	Hourly  [scheduler.Hours]float64 `json:"hourly"`
}

// Total is the energy of the whole day.
func (o Order) Total() float64 {
	sum := 0.0
	for _, v := range o.Hourly {
		sum += v
	}
	return sum
}

// Publisher delivers orders to the plants.
type Publisher interface {
	PublishOrders(ctx context.Context, orders []Order) error
}

// Build sums the cost of the cells assigned to each plant per hour. plantIDs
// is indexed like the instance plants. Plants with nothing to deliver still
// get an all-zero order.
func Build(day int, plantIDs []string, inst *scheduler.Instance, c *scheduler.Chromosome) []Order {
	out := make([]Order, len(plantIDs))
	for i, id := range plantIDs {
		out[i] = Order{PlantID: id, Day: day}
	}
	for h := 0; h < c.Hours() && h < scheduler.Hours; h++ {
		for b := 0; b < c.Blocks(); b++ {
			p := c.At(h, b)
			if p < 0 || p >= len(out) {
				continue
			}
			out[p].Hourly[h] += inst.Cost(p, b, h)
		}
	}
	return out
}

// Nop drops every order.
type Nop struct{}

func (Nop) PublishOrders(context.Context, []Order) error { return nil }

// MockPublisher records published orders. It is safe for concurrent use.
type MockPublisher struct {
	mu     sync.Mutex
	Orders []Order
	// Err, when set, is returned instead of recording.
	Err error
}

// PublishOrders records orders or returns Err.
func (m *MockPublisher) PublishOrders(_ context.Context, orders []Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Orders = append(m.Orders, orders...)
	return nil
}

// Published returns a copy of the recorded orders.
func (m *MockPublisher) Published() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.Orders...)
}
