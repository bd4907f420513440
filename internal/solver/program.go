package solver

import (
	"fmt"
	"math"
)

// Sense is the optimisation direction of a Program.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Domain restricts the values a variable may take.
type Domain int

const (
	// Continuous variables take any value in [0, Upper] (Upper of 0 means unbounded above).
	Continuous Domain = iota
	// Binary variables take 0 or 1.
	Binary
)

// Relation is the comparison operator of a linear constraint.
type Relation int

const (
	LessEqual Relation = iota
	GreaterEqual
	Equal
)

func (r Relation) String() string {
	switch r {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return "?"
	}
}

// Variable is a non-negative decision variable.
type Variable struct {
	Name   string
	Domain Domain
	Upper  float64
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is Σ terms <rel> RHS.
type Constraint struct {
	Name     string
	Terms    []Term
	Relation Relation
	RHS      float64
}

// Program is a linear or 0/1 mixed integer program over non-negative
// variables. Build it with AddVariable/AddConstraint and hand it to a Solver.
type Program struct {
	sense       Sense
	variables   []Variable
	objective   []float64
	constraints []Constraint
}

// NewProgram returns an empty program with the given sense.
func NewProgram(sense Sense) *Program {
	return &Program{sense: sense}
}

// Sense reports the optimisation direction.
func (p *Program) Sense() Sense {
	return p.sense
}

// AddVariable declares a variable and returns its index.
func (p *Program) AddVariable(name string, domain Domain) int {
	p.variables = append(p.variables, Variable{Name: name, Domain: domain})
	p.objective = append(p.objective, 0)
	return len(p.variables) - 1
}

// AddBoundedVariable declares a continuous variable in [0, upper].
func (p *Program) AddBoundedVariable(name string, upper float64) int {
	idx := p.AddVariable(name, Continuous)
	p.variables[idx].Upper = upper
	return idx
}

// SetObjective sets the objective coefficient of a variable.
func (p *Program) SetObjective(v int, coef float64) {
	p.objective[v] = coef
}

// AddConstraint appends Σ terms <rel> rhs.
func (p *Program) AddConstraint(name string, rel Relation, rhs float64, terms ...Term) {
	cp := make([]Term, len(terms))
	copy(cp, terms)
	p.constraints = append(p.constraints, Constraint{Name: name, Terms: cp, Relation: rel, RHS: rhs})
}

// NumVariables is the number of declared variables.
func (p *Program) NumVariables() int {
	return len(p.variables)
}

// NumConstraints is the number of declared constraints.
func (p *Program) NumConstraints() int {
	return len(p.constraints)
}

// Variable returns the declaration of variable v.
func (p *Program) Variable(v int) Variable {
	return p.variables[v]
}

// Constraints returns a copy of the declared constraints.
func (p *Program) Constraints() []Constraint {
	out := make([]Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// Evaluate computes the objective at the given point.
func (p *Program) Evaluate(values []float64) float64 {
	total := 0.0
	for j, c := range p.objective {
		total += c * values[j]
	}
	return total
}

func (p *Program) validate() error {
	for i, v := range p.variables {
		if v.Upper < 0 || math.IsNaN(v.Upper) {
			return fmt.Errorf("%w: variable %q has upper bound %v", ErrMalformed, v.Name, v.Upper)
		}
		if math.IsNaN(p.objective[i]) || math.IsInf(p.objective[i], 0) {
			return fmt.Errorf("%w: variable %q has objective coefficient %v", ErrMalformed, v.Name, p.objective[i])
		}
	}
	for _, c := range p.constraints {
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %q has right-hand side %v", ErrMalformed, c.Name, c.RHS)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.variables) {
				return fmt.Errorf("%w: constraint %q references variable %d", ErrMalformed, c.Name, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%w: constraint %q has coefficient %v", ErrMalformed, c.Name, t.Coef)
			}
		}
	}
	return nil
}

// Solution is an optimal point of a Program.
type Solution struct {
	// Objective is the optimal objective value in the program's own sense.
	Objective float64
	// Values holds one entry per declared variable.
	Values []float64
	// Nodes is the number of relaxations solved.
	Nodes int
}

// Value returns the optimal value of variable v.
func (s *Solution) Value(v int) float64 {
	return s.Values[v]
}
