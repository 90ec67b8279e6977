// Copyright 2025 The QLever Authors.
//
// Package sparqlexpr implements the vectorized SPARQL expression
// evaluator from spec.md section 4.4, grounded on
// original_source/src/parser/SparqlExpressionValueGetters.h (the
// NumericValueGetter/EffectiveBooleanValueGetter/StringValueGetter
// family) and SparqlExpressionTypes.h (the Nary-operation shape).
package sparqlexpr

import (
	"context"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/intervals"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
)

// Variable names a column by the SPARQL variable bound to it.
type Variable string

// EvaluationContext is everything an Expression needs to evaluate itself
// over a row range of one input table (spec.md section 4.4).
type EvaluationContext struct {
	Ctx        context.Context
	Input      rows.Table
	Begin, End int // [Begin, End) row range
	VarToCol   map[Variable]int
	LocalVocab *vocabulary.LocalVocab
	Allocator  *alloc.Allocator
	SortedOn   []int
}

func (ec *EvaluationContext) size() int { return ec.End - ec.Begin }

func (ec *EvaluationContext) checkCancelled(operator string) error {
	if err := ec.Ctx.Err(); err != nil {
		return errs.Cancellation(operator)
	}
	return nil
}

// ResultKind tags which variant of the ExpressionResult union is active.
type ResultKind int

const (
	KindScalarID ResultKind = iota
	KindVector
	KindVariable
	KindIntervals
)

// Result is the tagged union every Expression.Evaluate returns (spec.md
// section 4.4: "ExpressionResult is a tagged union of" a scalar, a
// vector sized to the row range, a Variable reference, or a
// set-of-intervals).
type Result struct {
	Kind      ResultKind
	Scalar    valueid.Id
	Vector    []valueid.Id
	Variable  Variable
	Intervals intervals.Set
}

func ScalarResult(id valueid.Id) Result       { return Result{Kind: KindScalarID, Scalar: id} }
func VectorResult(v []valueid.Id) Result      { return Result{Kind: KindVector, Vector: v} }
func VariableResult(v Variable) Result        { return Result{Kind: KindVariable, Variable: v} }
func IntervalsResult(s intervals.Set) Result  { return Result{Kind: KindIntervals, Intervals: s} }

// At returns the value at logical row i (relative to [0, end-begin)),
// resolving scalars as a broadcast, vectors by index, and variables by
// reading the input column.
func (r Result) At(ec *EvaluationContext, i int) valueid.Id {
	switch r.Kind {
	case KindScalarID:
		return r.Scalar
	case KindVector:
		return r.Vector[i]
	case KindVariable:
		return ec.Input.At(ec.Begin+i, ec.VarToCol[r.Variable])
	case KindIntervals:
		return valueid.MakeFromBool(r.Intervals.Contains(i))
	}
	panic("sparqlexpr: unreachable result kind")
}

// IsScalar reports whether r is a broadcastable scalar (so a Nary op over
// all-scalar children can itself produce a scalar instead of materializing
// a full vector).
func (r Result) IsScalar() bool { return r.Kind == KindScalarID }

// Expression is one node of the expression tree.
type Expression interface {
	Evaluate(ec *EvaluationContext) (Result, error)
	// CacheKey returns a stable string over the expression's structure
	// with free variables replaced by their column index, so structurally
	// identical expressions over the same columns produce the same key
	// (spec.md section 4.4).
	CacheKey(varToCol map[Variable]int) string
}
