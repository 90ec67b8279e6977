// Copyright 2025 The QLever Authors.
package sparqlexpr

import (
	"strings"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// Aggregate is an expression node parameterized by
// (value-getter, accumulate, finalize, tag) per spec.md section 4.4.
// Distinct pre-filters input values through a hash set keyed by the raw
// Id before accumulating.
//
// GROUP_CONCAT is handled by a separate string-accumulating path
// (groupConcatSep non-nil) since its accumulator threads a separator
// through text, not a number, and its result is a fresh string that must
// be interned into the query's LocalVocab rather than packed directly
// into an Id.
type Aggregate struct {
	Tag      string
	Child    Expression
	Distinct bool

	getter   func(ec *EvaluationContext, id valueid.Id) (float64, bool)
	zero     float64
	combine  func(acc, v float64) float64
	finalize func(acc float64, count int) valueid.Id

	groupConcatSep *string
	concatText     string
}

// NewNumericAggregate builds an Aggregate over the numeric value-getter
// (used by SUM and AVG). Values where the getter reports "not numeric"
// are excluded from both the accumulation and the running count, exactly
// as COUNT "ignores undefined values" in spec.md.
func NewNumericAggregate(tag string, child Expression, distinct bool, zero float64,
	combine func(acc, v float64) float64, finalize func(acc float64, count int) valueid.Id) *Aggregate {
	return &Aggregate{
		Tag: tag, Child: child, Distinct: distinct, zero: zero, combine: combine, finalize: finalize,
		getter: func(ec *EvaluationContext, id valueid.Id) (float64, bool) {
			kind, i, d := valueid.NumericValueGetter(id)
			if kind == valueid.NotNumeric {
				return 0, false
			}
			return valueid.AsFloat64(kind, i, d), true
		},
	}
}

// Count builds COUNT(child) or COUNT(DISTINCT child); undefined values are
// ignored regardless of distinctness (spec.md: "COUNT ignores undefined
// values").
func Count(child Expression, distinct bool) *Aggregate {
	return &Aggregate{
		Tag: "COUNT", Child: child, Distinct: distinct,
		getter: func(ec *EvaluationContext, id valueid.Id) (float64, bool) {
			return 0, IsValidGetter(ec, id)
		},
		combine:  func(acc, v float64) float64 { return acc + 1 },
		finalize: func(acc float64, count int) valueid.Id { return valueid.MakeFromInt(int64(acc)) },
	}
}

// Sum builds SUM(child) / SUM(DISTINCT child).
func Sum(child Expression, distinct bool) *Aggregate {
	return NewNumericAggregate("SUM", child, distinct, 0,
		func(acc, v float64) float64 { return acc + v },
		func(acc float64, count int) valueid.Id { return valueid.MakeFromDouble(acc) })
}

// Avg builds AVG(child) / AVG(DISTINCT child); an empty group averages to
// undefined rather than dividing by zero.
func Avg(child Expression, distinct bool) *Aggregate {
	return NewNumericAggregate("AVG", child, distinct, 0,
		func(acc, v float64) float64 { return acc + v },
		func(acc float64, count int) valueid.Id {
			if count == 0 {
				return valueid.MakeUndefined()
			}
			return valueid.MakeFromDouble(acc / float64(count))
		})
}

// GroupConcat builds GROUP_CONCAT(child; separator=sep), threading sep
// through the string accumulator as the original does. The accumulated
// text is retrieved with GroupConcatText after Evaluate runs; Evaluate
// itself returns an Undefined scalar since an arbitrary string cannot be
// packed into an Id without interning it into a LocalVocab first (spec.md
// section 3).
func GroupConcat(child Expression, distinct bool, sep string) *Aggregate {
	return &Aggregate{Tag: "GROUP_CONCAT", Child: child, Distinct: distinct, groupConcatSep: &sep}
}

// Evaluate runs the aggregate over the full row range of ec, applying
// DISTINCT pre-filtering when configured, and polls cancellation at the
// start of the pass (spec.md section 4.4: "polls the cancellation handle
// at the start of every aggregate pass").
func (a *Aggregate) Evaluate(ec *EvaluationContext) (Result, error) {
	if err := ec.checkCancelled("Aggregate:" + a.Tag); err != nil {
		return Result{}, err
	}
	child, err := a.Child.Evaluate(ec)
	if err != nil {
		return Result{}, err
	}
	if a.groupConcatSep != nil {
		return a.evaluateGroupConcat(ec, child)
	}

	var seen map[valueid.Id]struct{}
	if a.Distinct {
		seen = make(map[valueid.Id]struct{})
	}
	acc := a.zero
	count := 0
	for i := 0; i < ec.size(); i++ {
		id := child.At(ec, i)
		if a.Distinct {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		v, ok := a.getter(ec, id)
		if !ok {
			continue
		}
		acc = a.combine(acc, v)
		count++
	}
	return ScalarResult(a.finalize(acc, count)), nil
}

func (a *Aggregate) evaluateGroupConcat(ec *EvaluationContext, child Result) (Result, error) {
	var seen map[valueid.Id]struct{}
	if a.Distinct {
		seen = make(map[valueid.Id]struct{})
	}
	var b strings.Builder
	first := true
	for i := 0; i < ec.size(); i++ {
		id := child.At(ec, i)
		if a.Distinct {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		s, ok := stringValue(ec, id)
		if !ok {
			continue
		}
		if !first {
			b.WriteString(*a.groupConcatSep)
		}
		first = false
		b.WriteString(s)
	}
	a.concatText = b.String()
	return ScalarResult(valueid.MakeUndefined()), nil
}

// GroupConcatText returns the accumulated text after Evaluate has run; the
// caller interns it into the query's LocalVocab to obtain a usable Id.
func (a *Aggregate) GroupConcatText() string { return a.concatText }

// CacheKey includes the DISTINCT flag since COUNT and COUNT(DISTINCT) are
// different expressions over the same child.
func (a *Aggregate) CacheKey(varToCol map[Variable]int) string {
	if a.Distinct {
		return a.Tag + "(DISTINCT " + a.Child.CacheKey(varToCol) + ")"
	}
	return a.Tag + "(" + a.Child.CacheKey(varToCol) + ")"
}

// GetVariableForNonDistinctCount exposes the child variable when this is a
// plain (non-DISTINCT) COUNT over a single bound variable, so the planner
// can apply the pattern-trick optimization and skip aggregation entirely
// (spec.md section 4.4).
func (a *Aggregate) GetVariableForNonDistinctCount() (Variable, bool) {
	if a.Tag != "COUNT" || a.Distinct {
		return "", false
	}
	if v, ok := a.Child.(VariableRef); ok {
		return v.Var, true
	}
	return "", false
}
