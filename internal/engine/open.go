// Copyright 2025 The QLever Authors.
package engine

import (
	"fmt"

	"github.com/ad-freiburg/qlever-sub013/internal/compressedrelation"
	"github.com/ad-freiburg/qlever-sub013/internal/execctx"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
)

// OpenIndex loads the vocabulary and whichever permutations BuildIndex
// wrote for base, returning an execctx.Index ready to hand to an
// ExecutionContext.
func OpenIndex(base string) (*execctx.Index, error) {
	vocab, err := vocabulary.Load(base + ".vocabulary.internal")
	if err != nil {
		return nil, err
	}

	perms := make(map[execctx.PermutationName]*compressedrelation.Permutation)
	for _, name := range execctx.AllPermutations {
		dataPath := base + ".index." + string(name)
		metaPath := dataPath + ".meta"
		perm, err := compressedrelation.Load(dataPath, metaPath)
		if err != nil {
			continue // only-PSO-POS builds omit the other four; skip what is absent
		}
		perms[name] = perm
	}
	if len(perms) == 0 {
		return nil, fmt.Errorf("engine: no permutations found for index %q", base)
	}
	return execctx.New(vocab, perms), nil
}
