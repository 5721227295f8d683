package scheduler

import (
	"fmt"
	"math/rand/v2"
)

// Mutation names a mutation strategy.
type Mutation string

const (
	// SinglePoint reassigns one random cell.
	SinglePoint Mutation = "single_point"
	// BlockRow reassigns one block for every hour.
	BlockRow Mutation = "block_row"
	// HourSpread reassigns one random block in every hour.
	HourSpread Mutation = "hour_spread"
	// MultiPoint reassigns a random number of random cells.
	MultiPoint Mutation = "multi_point"
	// SwapPoints swaps the plants of random pairs of cells.
	SwapPoints Mutation = "swap_points"
	// Rotation rotates every hour row by a random offset.
	Rotation Mutation = "rotation"
)

// Mutations lists every strategy in a stable order.
func Mutations() []Mutation {
	return []Mutation{SinglePoint, BlockRow, HourSpread, MultiPoint, SwapPoints, Rotation}
}

// ParseMutation checks a configured strategy name.
func ParseMutation(name string) (Mutation, error) {
	for _, m := range Mutations() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownMutation)
}

// Mutate applies m to c in place and repairs it if the mutation broke a
// ceiling. It reports whether a repair ran.
func (in *Instance) Mutate(c *Chromosome, m Mutation, rng *rand.Rand) (bool, error) {
	switch m {
	case SinglePoint:
		c.Set(rng.IntN(in.hours), rng.IntN(in.blocks), rng.IntN(in.plants))
	case BlockRow:
		b := rng.IntN(in.blocks)
		for h := 0; h < in.hours; h++ {
			c.Set(h, b, rng.IntN(in.plants))
		}
	case HourSpread:
		for h := 0; h < in.hours; h++ {
			c.Set(h, rng.IntN(in.blocks), rng.IntN(in.plants))
		}
	case MultiPoint:
		for n := in.pointCount(rng); n > 0; n-- {
			c.Set(rng.IntN(in.hours), rng.IntN(in.blocks), rng.IntN(in.plants))
		}
	case SwapPoints:
		for n := in.pointCount(rng); n > 0; n-- {
			h1, b1 := rng.IntN(in.hours), rng.IntN(in.blocks)
			h2, b2 := rng.IntN(in.hours), rng.IntN(in.blocks)
			g := c.At(h1, b1)
			c.Set(h1, b1, c.At(h2, b2))
			c.Set(h2, b2, g)
		}
	case Rotation:
		if in.blocks < 2 {
			break
		}
		for h := 0; h < in.hours; h++ {
			k := 1 + rng.IntN(in.blocks-1)
			if rng.Float64() < 0.5 {
				k = in.blocks - k
			}
			rotate(c.row(h), k)
		}
	default:
		return false, fmt.Errorf("%q: %w", m, ErrUnknownMutation)
	}
	if in.Valid(c) {
		return false, nil
	}
	in.Repair(c, rng)
	return true, nil
}

// pointCount draws how many cells multi-cell strategies touch.
func (in *Instance) pointCount(rng *rand.Rand) int {
	return rng.IntN(in.blocks/2*(1+rng.IntN(12)) + 1)
}

// rotate shifts row left by k positions.
func rotate(row []int, k int) {
	n := len(row)
	k %= n
	if k == 0 {
		return
	}
	tmp := make([]int, n)
	for i := range row {
		tmp[i] = row[(i+k)%n]
	}
	copy(row, tmp)
}
