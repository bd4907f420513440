// Package problem holds the validated, immutable description of a rent
// division: the resources on offer, the units (single agents or couples) that
// occupy them, each unit's bids, and the house cost that prices must recover.
package problem
