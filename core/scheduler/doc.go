// Package scheduler runs the rolling multi-day optimisation. Days are solved
// strictly in sequence: the state of charge at the end of day D is the initial
// state of charge of day D+1, which is the only state carried between solves.
package scheduler
