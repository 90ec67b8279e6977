// Copyright 2025 The QLever Authors.
package sparqlexpr

import (
	"math"
	"strconv"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// ValueGetter converts one Id (resolved against the local vocab, where
// applicable) into the scalar type an operation's Function wants,
// encoding SPARQL's coercion rules (spec.md section 4.4, component 1 of
// the Nary-operation triple).
type ValueGetter[T any] func(ec *EvaluationContext, id valueid.Id) T

// NumericValueGetter converts an Id to {not-numeric, int64, double},
// grounded on SparqlExpressionValueGetters.h's NumericValueGetter: "IRIs
// are not numeric and yield undefined for arithmetic".
func NumericValueGetter(ec *EvaluationContext, id valueid.Id) (kind valueid.NumericKind, i int64, d float64) {
	return valueid.NumericValueGetter(id)
}

// EffectiveBooleanValueGetter implements the SPARQL EBV coercion (section
// 17.2.2 of the SPARQL standard, mirrored from
// EffectiveBooleanValueGetter in the original): numeric zero and NaN are
// false, booleans pass through, LocalVocab strings are true iff non-empty,
// and any other (undefined / unsupported) datatype is false. VocabIndex
// strings are not resolved here (see stringValue), so they are false too.
func EffectiveBooleanValueGetter(ec *EvaluationContext, id valueid.Id) bool {
	switch id.Datatype() {
	case valueid.Bool:
		return id.GetBool()
	case valueid.Int:
		return id.GetInt() != 0
	case valueid.Double:
		d := id.GetDouble()
		return d != 0 && !math.IsNaN(d)
	case valueid.VocabIndex, valueid.LocalVocabIndex:
		s, ok := stringValue(ec, id)
		return ok && s != ""
	default:
		return false
	}
}

// IsValidGetter reports whether id is neither Undefined nor a NaN double
// (an error signal from a previous calculation step), grounded on
// IsValidGetter in the original.
func IsValidGetter(ec *EvaluationContext, id valueid.Id) bool {
	if id.Datatype() == valueid.Undefined {
		return false
	}
	if id.Datatype() == valueid.Double && math.IsNaN(id.GetDouble()) {
		return false
	}
	return true
}

// StringValueGetter stringifies id: numeric and boolean datatypes via
// strconv, LocalVocabIndex ids via ec.LocalVocab — grounded on
// StringValueGetter in the original. ok is false for Undefined, for
// VocabIndex (no vocabulary is resolved here) and for every other datatype.
func StringValueGetter(ec *EvaluationContext, id valueid.Id) (string, bool) {
	return stringValue(ec, id)
}

func stringValue(ec *EvaluationContext, id valueid.Id) (string, bool) {
	switch id.Datatype() {
	case valueid.Int:
		return strconv.FormatInt(id.GetInt(), 10), true
	case valueid.Double:
		return strconv.FormatFloat(id.GetDouble(), 'g', -1, 64), true
	case valueid.Bool:
		if id.GetBool() {
			return "true", true
		}
		return "false", true
	case valueid.LocalVocabIndex:
		if ec.LocalVocab == nil {
			return "", false
		}
		return ec.LocalVocab.Get(id.GetLocalVocabIndex())
	case valueid.Undefined:
		return "", false
	default:
		// VocabIndex and the rest resolve through the permanent vocabulary,
		// which the evaluator does not hold a reference to directly; callers
		// needing on-disk vocab strings resolve via the Variable path and a
		// Vocabulary supplied at a higher layer (spec.md section 4.1: the
		// vocabulary contract is string<->id only, not owned by expressions).
		return "", false
	}
}
