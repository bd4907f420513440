// Package pricing turns a maxsum assignment into per-resource prices that sum
// to the house cost.
//
// Two strategies are offered. BramsKilgour lowers every price towards the
// next-highest competing bid, round by round, and splits any overshoot in
// proportion to how far each price fell. SungVlach solves a linear program
// for the envy-free price vector of minimum total, floored at the house cost.
package pricing
