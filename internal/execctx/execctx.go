// Copyright 2025 The QLever Authors.
//
// Package execctx implements the per-query execution context from spec.md
// section 3 ("a per-query object owning: a reference to the Index ..., a
// shared result cache, a shared allocator, a cancellation handle, a
// deadline, and a named-result cache"), grounded on
// original_source/src/engine/QueryExecutionContext.h: a thin, non-owning
// holder of back-references handed down to every operator of one query,
// generalized from "index + engine + subtree cache" to the fuller set
// SPEC_FULL.md's glue section names.
package execctx

import (
	"context"
	"time"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/cache"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
)

// ExecutionContext is handed down by pointer to every operator and
// expression evaluation of one query (Design Note item 4: the context
// owns the operators, not vice versa, so this type never holds a
// reference back to the tree it is serving).
type ExecutionContext struct {
	Index      *Index
	Cache      *cache.QueryResultCache
	Named      *cache.NamedResultCache
	Allocator  *alloc.Allocator
	Ctx        context.Context
	Deadline   time.Time // zero value means no deadline
}

// NewExecutionContext builds an ExecutionContext for one query. ctx is the
// Go idiomatic stand-in for spec.md's CancellationHandle: operators poll
// ctx.Err() (see CheckCancelled) instead of a bespoke handle object.
func NewExecutionContext(idx *Index, c *cache.QueryResultCache, named *cache.NamedResultCache, allocator *alloc.Allocator, ctx context.Context, deadline time.Time) *ExecutionContext {
	return &ExecutionContext{
		Index:     idx,
		Cache:     c,
		Named:     named,
		Allocator: allocator,
		Ctx:       ctx,
		Deadline:  deadline,
	}
}

// CheckCancelled reports a CancellationError, naming operator as the
// component that noticed, if either the context was cancelled or the
// query's deadline has passed (spec.md section 5: "a cancellation handle
// [and] a deadline").
func (ec *ExecutionContext) CheckCancelled(operator string) error {
	if err := ec.Ctx.Err(); err != nil {
		return errs.Cancellation(operator)
	}
	if !ec.Deadline.IsZero() && time.Now().After(ec.Deadline) {
		return errs.Cancellation(operator)
	}
	return nil
}
