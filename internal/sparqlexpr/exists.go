// Copyright 2025 The QLever Authors.
package sparqlexpr

import (
	"fmt"

	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
)

// SubqueryRunner is satisfied by the external query planner/executor;
// sparqlexpr only calls it, never implements it (spec.md section 4.4:
// "Implementers may choose either per-row evaluation or a single
// semi-join rewrite; the observable contract is a boolean per input
// row"). RunExists is given the outer row's bindings for the named free
// variables and returns whether the sub-query has at least one solution
// under that binding.
type SubqueryRunner interface {
	RunExists(ec *EvaluationContext, freeVarBindings map[Variable]valueid.Id) (bool, error)
}

// Exists is the EXISTS{...} expression node. FreeVars lists the
// sub-query's free variables that are bound in the enclosing scope; the
// runner is invoked once per distinct binding tuple encountered while
// scanning the row range, memoizing identical bindings within one
// Evaluate call to avoid redundant sub-query runs.
type Exists struct {
	Negated  bool
	FreeVars []Variable
	Runner   SubqueryRunner
}

func (e *Exists) Evaluate(ec *EvaluationContext) (Result, error) {
	if err := ec.checkCancelled("EXISTS"); err != nil {
		return Result{}, err
	}
	type bindingKey string
	memo := make(map[bindingKey]bool)

	evalRow := func(i int) (bool, error) {
		binding := make(map[Variable]valueid.Id, len(e.FreeVars))
		var key bindingKey
		for _, v := range e.FreeVars {
			col, ok := ec.VarToCol[v]
			if !ok {
				continue
			}
			id := ec.Input.At(ec.Begin+i, col)
			binding[v] = id
			key += bindingKey(fmt.Sprintf("%d:%d|", col, uint64(id)))
		}
		if cached, ok := memo[key]; ok {
			return cached, nil
		}
		found, err := e.Runner.RunExists(ec, binding)
		if err != nil {
			return false, err
		}
		memo[key] = found
		return found, nil
	}

	out := make([]valueid.Id, ec.size())
	for i := range out {
		found, err := evalRow(i)
		if err != nil {
			return Result{}, err
		}
		if e.Negated {
			found = !found
		}
		out[i] = valueid.MakeFromBool(found)
	}
	return VectorResult(out), nil
}

func (e *Exists) CacheKey(varToCol map[Variable]int) string {
	name := "EXISTS"
	if e.Negated {
		name = "NOT EXISTS"
	}
	cols := make([]int, len(e.FreeVars))
	for i, v := range e.FreeVars {
		cols[i] = varToCol[v]
	}
	return fmt.Sprintf("%s%v", name, cols)
}
