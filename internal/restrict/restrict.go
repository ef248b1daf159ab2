// Package restrict models time-windowed multiplicative adjustments to the
// infectivity matrix, such as lockdowns or school closures.
package restrict

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Modifier is a multiplicative prefactor for the infectivity matrix,
// either a plain scalar or a full elementwise matrix.
type Modifier struct {
	scalar float64
	matrix *mat.Dense
}

// Identity returns the no-op modifier.
func Identity() Modifier { return Modifier{scalar: 1} }

// Scalar returns a modifier scaling every matrix element by v.
func Scalar(v float64) Modifier { return Modifier{scalar: v} }

// Matrix returns a modifier applying m elementwise. The caller must not
// mutate m afterwards.
func Matrix(m *mat.Dense) Modifier { return Modifier{matrix: m} }

// IsIdentity reports whether the modifier leaves the matrix unchanged.
func (m Modifier) IsIdentity() bool { return m.matrix == nil && m.scalar == 1 }

// Mul combines two modifiers into their elementwise product.
func (m Modifier) Mul(o Modifier) Modifier {
	switch {
	case m.matrix == nil && o.matrix == nil:
		return Modifier{scalar: m.scalar * o.scalar}
	case m.matrix != nil && o.matrix != nil:
		var out mat.Dense
		out.MulElem(m.matrix, o.matrix)
		return Modifier{matrix: &out}
	case m.matrix != nil:
		var out mat.Dense
		out.Scale(o.scalar, m.matrix)
		return Modifier{matrix: &out}
	default:
		var out mat.Dense
		out.Scale(m.scalar, o.matrix)
		return Modifier{matrix: &out}
	}
}

// Apply writes base scaled by the modifier into dst. dst and base must
// share dimensions; dst may alias base.
func (m Modifier) Apply(dst, base *mat.Dense) {
	if m.matrix != nil {
		dst.MulElem(m.matrix, base)
		return
	}
	dst.Scale(m.scalar, base)
}

// Func returns the infectivity modifier in effect at time t. A nil Func
// means no restrictions at all.
type Func func(t float64) Modifier

// Restriction is one time-windowed infectivity modification. The modifier
// applies for Begins <= t <= Ends and is the identity outside the window.
type Restriction struct {
	Title    string
	Begins   float64
	Ends     float64
	Modifier Modifier
}

func (r Restriction) Func() Func {
	return func(t float64) Modifier {
		if t >= r.Begins && t <= r.Ends {
			return r.Modifier
		}
		return Identity()
	}
}

// Compose combines restriction functions into a single one. Zero functions
// compose to nil, one is used directly, and several multiply elementwise,
// so concurrently active restrictions compound.
func Compose(funcs ...Func) Func {
	switch len(funcs) {
	case 0:
		return nil
	case 1:
		return funcs[0]
	default:
		return func(t float64) Modifier {
			m := Identity()
			for _, f := range funcs {
				m = m.Mul(f(t))
			}
			return m
		}
	}
}

// ComposeRestrictions is Compose over the restrictions' window functions.
func ComposeRestrictions(rs []Restriction) Func {
	funcs := make([]Func, len(rs))
	for i, r := range rs {
		funcs[i] = r.Func()
	}
	return Compose(funcs...)
}

// Pair scales the infectivity between two compartment groups. A group is
// a list of compartment names; the single name "all" expands to every
// compartment.
type Pair struct {
	From   []string
	To     []string
	Factor float64
}

// ModifierFromPairs builds a matrix modifier from per-pair definitions.
// Each pair multiplies the (i, j) and (j, i) entries for every i in From
// and j in To; an entry named by several expansions of the same pair is
// still multiplied only once.
func ModifierFromPairs(pairs []Pair, compartments []string) (Modifier, error) {
	n := len(compartments)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, 1)
		}
	}

	for _, p := range pairs {
		from, err := resolveGroup(p.From, compartments)
		if err != nil {
			return Modifier{}, err
		}
		to, err := resolveGroup(p.To, compartments)
		if err != nil {
			return Modifier{}, err
		}

		touched := make(map[[2]int]bool)
		for _, i := range from {
			for _, j := range to {
				touched[[2]int{i, j}] = true
				touched[[2]int{j, i}] = true
			}
		}
		for idx := range touched {
			out.Set(idx[0], idx[1], out.At(idx[0], idx[1])*p.Factor)
		}
	}

	return Matrix(out), nil
}

func resolveGroup(group []string, compartments []string) ([]int, error) {
	if len(group) == 1 && strings.EqualFold(group[0], "all") {
		idxs := make([]int, len(compartments))
		for i := range compartments {
			idxs[i] = i
		}
		return idxs, nil
	}

	idxs := make([]int, 0, len(group))
	for _, name := range group {
		found := -1
		for i, c := range compartments {
			if c == name {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("restrict: unknown compartment %q", name)
		}
		idxs = append(idxs, found)
	}
	return idxs, nil
}
