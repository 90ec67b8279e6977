// Copyright 2025 The QLever Authors.
package sparqlexpr

import (
	"fmt"
	"strings"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/intervals"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// NumericFunction combines the numeric value-getter outputs of every child
// at one row into a single result Id.
type NumericFunction func(args []float64, kinds []valueid.NumericKind) valueid.Id

// BoolFunction combines the EBV-coerced outputs of every child at one row.
type BoolFunction func(args []bool) bool

// IntervalFunction is the specialized fast path invoked when every child's
// result is already a set-of-intervals — it short-circuits to O(intervals)
// set algebra instead of O(rows) boolean evaluation. And (&&) and Or (||)
// supply one; Not (!) has none and always evaluates row by row.
type IntervalFunction func(args []intervals.Set) intervals.Set

// NaryNumeric is an expression node built from a numeric value-getter, a
// combining function, and its children, following the
// (ValueGetter, Function) pair the original factors every arithmetic
// SPARQL operator into.
type NaryNumeric struct {
	Name     string
	Children []Expression
	Fn       NumericFunction
}

func (e *NaryNumeric) Evaluate(ec *EvaluationContext) (Result, error) {
	if err := ec.checkCancelled(e.Name); err != nil {
		return Result{}, err
	}
	childResults := make([]Result, len(e.Children))
	allScalar := true
	for i, c := range e.Children {
		r, err := c.Evaluate(ec)
		if err != nil {
			return Result{}, err
		}
		childResults[i] = r
		allScalar = allScalar && r.IsScalar()
	}

	eval := func(i int) valueid.Id {
		kinds := make([]valueid.NumericKind, len(childResults))
		vals := make([]float64, len(childResults))
		for c, r := range childResults {
			id := r.At(ec, i)
			kind, iv, d := valueid.NumericValueGetter(id)
			kinds[c] = kind
			vals[c] = valueid.AsFloat64(kind, iv, d)
		}
		return e.Fn(vals, kinds)
	}

	if allScalar {
		return ScalarResult(eval(0)), nil
	}
	out := make([]valueid.Id, ec.size())
	for i := range out {
		out[i] = eval(i)
	}
	return VectorResult(out), nil
}

func (e *NaryNumeric) CacheKey(varToCol map[Variable]int) string {
	return naryCacheKey(e.Name, e.Children, varToCol)
}

// NaryBool is an expression node over the effective-boolean-value getter,
// with an optional specialized IntervalFunction fast path (set for && and
// ||, not for !).
type NaryBool struct {
	Name       string
	Children   []Expression
	Fn         BoolFunction
	IntervalFn IntervalFunction // optional; nil disables the fast path
}

func (e *NaryBool) Evaluate(ec *EvaluationContext) (Result, error) {
	if err := ec.checkCancelled(e.Name); err != nil {
		return Result{}, err
	}
	childResults := make([]Result, len(e.Children))
	allScalar := true
	allIntervals := e.IntervalFn != nil
	for i, c := range e.Children {
		r, err := c.Evaluate(ec)
		if err != nil {
			return Result{}, err
		}
		childResults[i] = r
		allScalar = allScalar && r.IsScalar()
		allIntervals = allIntervals && r.Kind == KindIntervals
	}

	if allIntervals {
		sets := make([]intervals.Set, len(childResults))
		for i, r := range childResults {
			sets[i] = r.Intervals
		}
		return IntervalsResult(e.IntervalFn(sets)), nil
	}

	eval := func(i int) bool {
		args := make([]bool, len(childResults))
		for c, r := range childResults {
			args[c] = EffectiveBooleanValueGetter(ec, r.At(ec, i))
		}
		return e.Fn(args)
	}

	if allScalar {
		return ScalarResult(valueid.MakeFromBool(eval(0))), nil
	}
	out := make([]valueid.Id, ec.size())
	for i := range out {
		out[i] = valueid.MakeFromBool(eval(i))
	}
	return VectorResult(out), nil
}

func (e *NaryBool) CacheKey(varToCol map[Variable]int) string {
	return naryCacheKey(e.Name, e.Children, varToCol)
}

// VariableRef is a leaf expression that reads a bound column.
type VariableRef struct {
	Var Variable
}

func (e VariableRef) Evaluate(ec *EvaluationContext) (Result, error) {
	if _, ok := ec.VarToCol[e.Var]; !ok {
		return Result{}, errs.Config("sparqlexpr: unbound variable %q", e.Var)
	}
	return VariableResult(e.Var), nil
}

func (e VariableRef) CacheKey(varToCol map[Variable]int) string {
	if col, ok := varToCol[e.Var]; ok {
		return fmt.Sprintf("$%d", col)
	}
	return "$" + string(e.Var)
}

// Literal is a leaf expression holding a constant Id, broadcast over the
// whole row range.
type Literal struct {
	Value valueid.Id
}

func (e Literal) Evaluate(ec *EvaluationContext) (Result, error) {
	return ScalarResult(e.Value), nil
}

func (e Literal) CacheKey(map[Variable]int) string {
	return fmt.Sprintf("#%d:%d", e.Value.Datatype(), uint64(e.Value))
}

func naryCacheKey(name string, children []Expression, varToCol map[Variable]int) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.CacheKey(varToCol)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}
