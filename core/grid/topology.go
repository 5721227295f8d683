// Package grid describes which plants can feed which demand blocks and what
// it costs them.
package grid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/thermogrid/core/demand"
	"github.com/kilianp07/thermogrid/core/scheduler"
)

// ErrInvalidTopology is returned when ids, capacities or distances are inconsistent.
var ErrInvalidTopology = errors.New("invalid topology")

// PlantSpec describes one plant of the fleet.
type PlantSpec struct {
	ID       string  `json:"id" yaml:"id"`
	Capacity float64 `json:"capacity" yaml:"capacity"`
	Boilers  int     `json:"boilers" yaml:"boilers"`
}

// Block is a demand block fed by the grid.
type Block struct {
	ID         string         `json:"id" yaml:"id"`
	Importance float64        `json:"importance" yaml:"importance"`
	Profile    demand.Profile `json:"profile" yaml:"profile"`
}

// Topology holds the plants, the blocks and the plant to block distance
// factors, indexed [plant][block].
type Topology struct {
	Plants    []PlantSpec `json:"plants" yaml:"plants"`
	Blocks    []Block     `json:"blocks" yaml:"blocks"`
	Distances [][]float64 `json:"distances" yaml:"distances"`
}

// Validate checks ids, capacities, importances and the distance table shape.
func (t Topology) Validate() error {
	if len(t.Plants) == 0 || len(t.Blocks) == 0 {
		return fmt.Errorf("%d plants, %d blocks: %w", len(t.Plants), len(t.Blocks), ErrInvalidTopology)
	}
	seen := map[string]bool{}
	for _, p := range t.Plants {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("plant id %q empty or duplicated: %w", p.ID, ErrInvalidTopology)
		}
		seen[p.ID] = true
		if !(p.Capacity > 0) || math.IsInf(p.Capacity, 0) || p.Boilers < 1 {
			return fmt.Errorf("plant %s capacity %v boilers %d: %w", p.ID, p.Capacity, p.Boilers, ErrInvalidTopology)
		}
	}
	seen = map[string]bool{}
	for _, b := range t.Blocks {
		if b.ID == "" || seen[b.ID] {
			return fmt.Errorf("block id %q empty or duplicated: %w", b.ID, ErrInvalidTopology)
		}
		seen[b.ID] = true
		if b.Importance < 0 {
			return fmt.Errorf("block %s importance %v: %w", b.ID, b.Importance, ErrInvalidTopology)
		}
		if err := b.Profile.Validate(); err != nil {
			return fmt.Errorf("block %s: %w", b.ID, err)
		}
	}
	if len(t.Distances) != len(t.Plants) {
		return fmt.Errorf("%d distance rows for %d plants: %w", len(t.Distances), len(t.Plants), ErrInvalidTopology)
	}
	for i, row := range t.Distances {
		if len(row) != len(t.Blocks) {
			return fmt.Errorf("plant %s has %d distances for %d blocks: %w", t.Plants[i].ID, len(row), len(t.Blocks), ErrInvalidTopology)
		}
		for j, d := range row {
			if !(d >= 0) || math.IsInf(d, 0) {
				return fmt.Errorf("distance %s->%s is %v: %w", t.Plants[i].ID, t.Blocks[j].ID, d, ErrInvalidTopology)
			}
		}
	}
	return nil
}

// PlantIndex returns the position of the plant with id.
func (t Topology) PlantIndex(id string) (int, bool) {
	for i, p := range t.Plants {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// BlockIndex returns the position of the block with id.
func (t Topology) BlockIndex(id string) (int, bool) {
	for i, b := range t.Blocks {
		if b.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Profiles returns the demand profile of every block.
func (t Topology) Profiles() []demand.Profile {
	out := make([]demand.Profile, len(t.Blocks))
	for i, b := range t.Blocks {
		out[i] = b.Profile
	}
	return out
}

// Importances returns the importance of every block.
func (t Topology) Importances() []float64 {
	out := make([]float64, len(t.Blocks))
	for i, b := range t.Blocks {
		out[i] = b.Importance
	}
	return out
}

// CostFunc charges a plant the block demand plus the line loss proportional
// to the distance: demand + distance*demand. load is indexed [block][hour].
func (t Topology) CostFunc(load [][]float64) scheduler.CostFunc {
	return func(plant, block, hour int) float64 {
		d := load[block][hour]
		return d + t.Distances[plant][block]*d
	}
}

// ReadDistances parses a plant_id,block_id,distance CSV into a distance
// table aligned with the topology. Pairs missing from the file keep the
// value in fallback. A header row is skipped when present.
func (t Topology) ReadDistances(r io.Reader, fallback float64) ([][]float64, error) {
	out := make([][]float64, len(t.Plants))
	for i := range out {
		out[i] = make([]float64, len(t.Blocks))
		for j := range out[i] {
			out[i][j] = fallback
		}
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("distances: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "plant_id") {
			continue
		}
		pi, ok := t.PlantIndex(rec[0])
		if !ok {
			return nil, fmt.Errorf("line %d unknown plant %q: %w", line, rec[0], ErrInvalidTopology)
		}
		bi, ok := t.BlockIndex(rec[1])
		if !ok {
			return nil, fmt.Errorf("line %d unknown block %q: %w", line, rec[1], ErrInvalidTopology)
		}
		d, err := strconv.ParseFloat(rec[2], 64)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("line %d distance %q: %w", line, rec[2], ErrInvalidTopology)
		}
		out[pi][bi] = d
	}
	return out, nil
}
