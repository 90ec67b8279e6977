// Copyright 2025 The QLever Authors.
package execctx

import (
	"context"
	"fmt"

	"github.com/ad-freiburg/qlever-sub013/internal/compressedrelation"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
)

// PermutationName is one of the six triple sort orders spec.md section
// 3 names (SPO, SOP, PSO, POS, OSP, OPS); the string form matches the
// on-disk file suffix (spec.md section 6: "<B>.index.<perm>").
type PermutationName string

const (
	SPO PermutationName = "spo"
	SOP PermutationName = "sop"
	PSO PermutationName = "pso"
	POS PermutationName = "pos"
	OSP PermutationName = "osp"
	OPS PermutationName = "ops"
)

// AllPermutations is the full six-permutation set a complete index build
// produces (spec.md section 6); view.Manager instead persists just one,
// per the Open Question decision recorded in DESIGN.md.
var AllPermutations = []PermutationName{SPO, SOP, PSO, POS, OSP, OPS}

// Index bundles the read-only vocabulary and loaded permutations that
// back query serving: "a reference to the Index (and its vocabulary and
// permutations)" per spec.md section 3. It is immutable once built
// (spec.md section 5: "immutable during query serving; shared by
// const-reference"), so Index itself carries no mutex — only its
// constituent Permutations do, for their own state-machine transitions.
type Index struct {
	Vocab        vocabulary.Vocabulary
	permutations map[PermutationName]*compressedrelation.Permutation
}

// New bundles a vocabulary with a loaded permutation set. Any subset of
// AllPermutations may be present (e.g. a materialized view loads only
// SPO); Scan reports NotFound for a requested permutation absent here.
func New(vocab vocabulary.Vocabulary, permutations map[PermutationName]*compressedrelation.Permutation) *Index {
	return &Index{Vocab: vocab, permutations: permutations}
}

// Permutation returns the loaded permutation for name, or NotFound if the
// index does not carry it.
func (idx *Index) Permutation(name PermutationName) (*compressedrelation.Permutation, error) {
	p, ok := idx.permutations[name]
	if !ok {
		return nil, errs.NotFound("execctx: permutation %q is not loaded on this index", name)
	}
	return p, nil
}

// Scan is the index-scan primitive every operator composes: look up the
// named permutation and scan it with prefix (spec.md section 4.2's
// "obtain sorted streams of rows" data-flow step).
func (idx *Index) Scan(ctx context.Context, name PermutationName, prefix []valueid.Id) ([]rows.Row, error) {
	p, err := idx.Permutation(name)
	if err != nil {
		return nil, err
	}
	return p.Scan(ctx, prefix)
}

// Close closes every loaded permutation, in the order spec.md section
// 4.2 allows ("transitions only happen at engine startup/shutdown").
func (idx *Index) Close() error {
	var firstErr error
	for _, name := range AllPermutations {
		p, ok := idx.permutations[name]
		if !ok {
			continue
		}
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("execctx: closing permutation %s: %w", name, err)
		}
	}
	return firstErr
}
