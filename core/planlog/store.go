// Package planlog persists one record per planned day and lets operators
// query them back by run and day range.
package planlog

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Record captures the outcome of one planning cycle.
type Record struct {
	RunID     string    `json:"run_id"`
	Day       int       `json:"day"`
	Timestamp time.Time `json:"timestamp"`
	Fitness   float64   `json:"fitness"`
	Served    int       `json:"served"`
	Unserved  int       `json:"unserved"`
	Deficit   float64   `json:"deficit"`
	// Assignment is indexed [hour][block]; -1 marks an unserved cell.
	Assignment [][]int `json:"assignment"`
}

// Query filters records. Zero values disable a filter; ToDay is inclusive.
type Query struct {
	RunID   string
	FromDay int
	ToDay   int
	Start   time.Time
	End     time.Time
}

func (q Query) match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.FromDay > 0 && r.Day < q.FromDay {
		return false
	}
	if q.ToDay > 0 && r.Day > q.ToDay {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is jsonl, rotating or sqlite. Empty disables the plan log.
	Backend    string `json:"backend" yaml:"backend"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults fills the rotation limits.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("planlog %s backend requires a path", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown planlog backend %q", c.Backend)
	}
}

// Open creates the configured store.
func Open(c Config) (Store, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Backend {
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "rotating":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	}
	return NopStore{}, nil
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return recs[i].Day < recs[j].Day
	})
}
