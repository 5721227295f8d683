package scheduler

import "math/rand/v2"

// Generate builds a feasible chromosome by visiting every cell in random order
// and giving it to a random plant that still has room for it.
func (in *Instance) Generate(rng *rand.Rand) *Chromosome {
	c := in.NewChromosome()
	cells := make([]cell, 0, in.hours*in.blocks)
	for b := 0; b < in.blocks; b++ {
		for h := 0; h < in.hours; h++ {
			cells = append(cells, cell{hour: h, block: b})
		}
	}
	rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	free := in.zeroLedger()
	for p := range free {
		copy(free[p], in.ceilings[p])
	}
	in.assign(c, cells, free, rng)
	return c
}

// assign gives each cell, in order, to a uniformly chosen plant whose free
// capacity covers its cost, deducting as it goes. Cells nobody can take stay
// unserved.
func (in *Instance) assign(c *Chromosome, cells []cell, free [][]float64, rng *rand.Rand) {
	cand := make([]int, 0, in.plants)
	for _, cl := range cells {
		k := in.bucket(cl.hour)
		cand = cand[:0]
		for p := 0; p < in.plants; p++ {
			if free[p][k]+1e-9 >= in.Cost(p, cl.block, cl.hour) {
				cand = append(cand, p)
			}
		}
		if len(cand) == 0 {
			c.Set(cl.hour, cl.block, Unserved)
			continue
		}
		p := cand[rng.IntN(len(cand))]
		c.Set(cl.hour, cl.block, p)
		free[p][k] -= in.Cost(p, cl.block, cl.hour)
	}
}

// Repair restores the ceilings of c in place. Genes naming no plant are
// evicted, then random cells of every overloaded plant are evicted until it
// fits. The evicted cells are shuffled and greedily reassigned against the
// remaining capacity. It returns the number of evicted cells; a valid
// chromosome is left untouched.
func (in *Instance) Repair(c *Chromosome, rng *rand.Rand) int {
	var evicted []cell
	for h := 0; h < in.hours; h++ {
		for b := 0; b < in.blocks; b++ {
			g := c.At(h, b)
			if g != Unserved && (g < 0 || g >= in.plants) {
				c.Set(h, b, Unserved)
				evicted = append(evicted, cell{hour: h, block: b})
			}
		}
	}

	free := in.free(c)
	for p := 0; p < in.plants; p++ {
		for k := range free[p] {
			if free[p][k] >= -tolerance {
				continue
			}
			members := in.cellsOf(c, p, k)
			for free[p][k] < -tolerance && len(members) > 0 {
				i := rng.IntN(len(members))
				cl := members[i]
				members[i] = members[len(members)-1]
				members = members[:len(members)-1]
				c.Set(cl.hour, cl.block, Unserved)
				free[p][k] += in.Cost(p, cl.block, cl.hour)
				evicted = append(evicted, cl)
			}
		}
	}
	if len(evicted) == 0 {
		return 0
	}
	rng.Shuffle(len(evicted), func(i, j int) { evicted[i], evicted[j] = evicted[j], evicted[i] })
	in.assign(c, evicted, free, rng)
	return len(evicted)
}

func (in *Instance) cellsOf(c *Chromosome, plant, bucket int) []cell {
	var out []cell
	for h := 0; h < in.hours; h++ {
		if in.bucket(h) != bucket {
			continue
		}
		for b := 0; b < in.blocks; b++ {
			if c.At(h, b) == plant {
				out = append(out, cell{hour: h, block: b})
			}
		}
	}
	return out
}

// Crossover splices the parents hour by hour at a random block index. For each
// hour a coin decides which parent gives the prefix. The child is repaired when
// the splice overloads a plant; the second result reports whether it was.
func (in *Instance) Crossover(a, b *Chromosome, rng *rand.Rand) (*Chromosome, bool) {
	child := in.NewChromosome()
	for h := 0; h < in.hours; h++ {
		split := rng.IntN(in.blocks + 1)
		first, second := a, b
		if rng.Float64() < 0.5 {
			first, second = b, a
		}
		row := child.row(h)
		copy(row[:split], first.row(h)[:split])
		copy(row[split:], second.row(h)[split:])
	}
	if in.Valid(child) {
		return child, false
	}
	in.Repair(child, rng)
	return child, true
}
