// Package scheduler assigns demand cells (hour, block) to supplying plants with a
// repair-based genetic search. Every chromosome it hands out respects the plant
// capacity ceilings; infeasible cells are left unserved instead of failing.
package scheduler
