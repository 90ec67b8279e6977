// Copyright 2025 The QLever Authors.
package sparqlexpr

import (
	"math"

	"github.com/ad-freiburg/qlever-sub013/internal/intervals"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// undefinedIfAny returns true when any numeric kind is NotNumeric, in
// which case an arithmetic expression must propagate "undefined" rather
// than compute a bogus result (spec.md section 4.1: "non-numeric yields
// not numeric which propagates through arithmetic as the SPARQL NaN").
func undefinedIfAny(kinds []valueid.NumericKind) bool {
	for _, k := range kinds {
		if k == valueid.NotNumeric {
			return true
		}
	}
	return false
}

// allInt64 reports whether every operand is a KindInt64, the condition
// under which arithmetic must stay int-typed rather than promote to
// double (spec.md section 8 scenario S2: "5 - 10 AS ?m" yields an int,
// not a double).
func allInt64(kinds []valueid.NumericKind) bool {
	for _, k := range kinds {
		if k != valueid.KindInt64 {
			return false
		}
	}
	return true
}

func numericResult(kinds []valueid.NumericKind, result float64) valueid.Id {
	if undefinedIfAny(kinds) || math.IsNaN(result) {
		return valueid.MakeUndefined()
	}
	if allInt64(kinds) {
		return valueid.MakeFromInt(int64(result))
	}
	return valueid.MakeFromDouble(result)
}

// Add builds the n-ary `+` expression.
func Add(children ...Expression) Expression {
	return &NaryNumeric{Name: "+", Children: children, Fn: func(args []float64, kinds []valueid.NumericKind) valueid.Id {
		sum := 0.0
		for _, a := range args {
			sum += a
		}
		return numericResult(kinds, sum)
	}}
}

// Sub builds the binary `-` expression.
func Sub(a, b Expression) Expression {
	return &NaryNumeric{Name: "-", Children: []Expression{a, b}, Fn: func(args []float64, kinds []valueid.NumericKind) valueid.Id {
		return numericResult(kinds, args[0]-args[1])
	}}
}

// Mul builds the n-ary `*` expression.
func Mul(children ...Expression) Expression {
	return &NaryNumeric{Name: "*", Children: children, Fn: func(args []float64, kinds []valueid.NumericKind) valueid.Id {
		prod := 1.0
		for _, a := range args {
			prod *= a
		}
		return numericResult(kinds, prod)
	}}
}

// Div builds the binary `/` expression. Division by zero yields undefined,
// matching SPARQL's error-as-undefined propagation rather than a panic or
// an infinite double.
func Div(a, b Expression) Expression {
	return &NaryNumeric{Name: "/", Children: []Expression{a, b}, Fn: func(args []float64, kinds []valueid.NumericKind) valueid.Id {
		if undefinedIfAny(kinds) || args[1] == 0 {
			return valueid.MakeUndefined()
		}
		return numericResult(kinds, args[0]/args[1])
	}}
}

// And builds the n-ary `&&` expression, with the interval-algebra fast
// path enabled.
func And(children ...Expression) Expression {
	return &NaryBool{
		Name:     "&&",
		Children: children,
		Fn: func(args []bool) bool {
			for _, a := range args {
				if !a {
					return false
				}
			}
			return true
		},
		IntervalFn: func(sets []intervals.Set) intervals.Set {
			out := sets[0]
			for _, s := range sets[1:] {
				out = intervals.Intersection(out, s)
			}
			return out
		},
	}
}

// Or builds the n-ary `||` expression, with the interval-algebra fast path
// enabled.
func Or(children ...Expression) Expression {
	return &NaryBool{
		Name:     "||",
		Children: children,
		Fn: func(args []bool) bool {
			for _, a := range args {
				if a {
					return true
				}
			}
			return false
		},
		IntervalFn: func(sets []intervals.Set) intervals.Set {
			out := sets[0]
			for _, s := range sets[1:] {
				out = intervals.Union(out, s)
			}
			return out
		},
	}
}

// Not builds the unary `!` expression. The interval fast path has no
// direct analogue (complementing an interval set needs a table size), so
// Not always falls back to the row-wise boolean path.
func Not(child Expression) Expression {
	return &NaryBool{
		Name:     "!",
		Children: []Expression{child},
		Fn:       func(args []bool) bool { return !args[0] },
	}
}

// numericCompare builds a comparison expression (<, <=, >, >=) over the
// numeric value-getter; non-numeric operands make the comparison
// undefined rather than false, per SPARQL's error-as-undefined rule.
func numericCompare(name string, a, b Expression, cmp func(x, y float64) bool) Expression {
	return &NaryNumeric{Name: name, Children: []Expression{a, b}, Fn: func(args []float64, kinds []valueid.NumericKind) valueid.Id {
		if undefinedIfAny(kinds) {
			return valueid.MakeUndefined()
		}
		return valueid.MakeFromBool(cmp(args[0], args[1]))
	}}
}

func Less(a, b Expression) Expression         { return numericCompare("<", a, b, func(x, y float64) bool { return x < y }) }
func LessEq(a, b Expression) Expression       { return numericCompare("<=", a, b, func(x, y float64) bool { return x <= y }) }
func Greater(a, b Expression) Expression      { return numericCompare(">", a, b, func(x, y float64) bool { return x > y }) }
func GreaterEq(a, b Expression) Expression    { return numericCompare(">=", a, b, func(x, y float64) bool { return x >= y }) }
