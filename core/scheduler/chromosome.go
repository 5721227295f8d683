package scheduler

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Chromosome is one hour x block assignment table. Each gene holds a plant
// index or Unserved.
type Chromosome struct {
	hours  int
	blocks int
	genes  []int
}

// NewChromosome returns an all-unserved table.
func NewChromosome(hours, blocks int) *Chromosome {
	genes := make([]int, hours*blocks)
	for i := range genes {
		genes[i] = Unserved
	}
	return &Chromosome{hours: hours, blocks: blocks, genes: genes}
}

// FromRows builds a chromosome from rows indexed [hour][block].
func FromRows(rows [][]int) (*Chromosome, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty rows: %w", ErrInvalidProblem)
	}
	c := NewChromosome(len(rows), len(rows[0]))
	for h, row := range rows {
		if len(row) != c.blocks {
			return nil, fmt.Errorf("row %d has %d blocks, want %d: %w", h, len(row), c.blocks, ErrInvalidProblem)
		}
		copy(c.row(h), row)
	}
	return c, nil
}

// Hours returns the number of rows.
func (c *Chromosome) Hours() int { return c.hours }

// Blocks returns the number of columns.
func (c *Chromosome) Blocks() int { return c.blocks }

// At returns the plant assigned to block at hour.
func (c *Chromosome) At(hour, block int) int { return c.genes[hour*c.blocks+block] }

// Set assigns plant to block at hour.
func (c *Chromosome) Set(hour, block, plant int) { c.genes[hour*c.blocks+block] = plant }

func (c *Chromosome) row(hour int) []int {
	return c.genes[hour*c.blocks : (hour+1)*c.blocks]
}

// Row returns a copy of the assignments of one hour.
func (c *Chromosome) Row(hour int) []int { return slices.Clone(c.row(hour)) }

// Rows returns a copy of the table indexed [hour][block].
func (c *Chromosome) Rows() [][]int {
	out := make([][]int, c.hours)
	for h := range out {
		out[h] = c.Row(h)
	}
	return out
}

// Clone returns a deep copy.
func (c *Chromosome) Clone() *Chromosome {
	return &Chromosome{hours: c.hours, blocks: c.blocks, genes: slices.Clone(c.genes)}
}

// Equal reports whether both tables hold the same assignments.
func (c *Chromosome) Equal(o *Chromosome) bool {
	return o != nil && c.hours == o.hours && c.blocks == o.blocks && slices.Equal(c.genes, o.genes)
}

// Served counts the cells assigned to a plant.
func (c *Chromosome) Served() int {
	n := 0
	for _, g := range c.genes {
		if g != Unserved {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the table as rows indexed [hour][block].
func (c *Chromosome) MarshalJSON() ([]byte, error) { return json.Marshal(c.Rows()) }

// UnmarshalJSON decodes rows produced by MarshalJSON.
func (c *Chromosome) UnmarshalJSON(b []byte) error {
	var rows [][]int
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	d, err := FromRows(rows)
	if err != nil {
		return err
	}
	*c = *d
	return nil
}

type cell struct{ hour, block int }
