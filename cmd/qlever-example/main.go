// Copyright 2025 The QLever Authors.
//
// qlever-example builds a throwaway index from a triples file and runs a
// single demonstration scan over it, the "Example runner" CLI surface of
// spec.md section 6: a single positional argument naming the input
// triples file. It deliberately stops short of accepting or planning a
// SPARQL query string — the parser and planner that would do that are
// out of spec.md's scope — and instead exercises the scan path directly:
// it looks up the first triple's subject in the vocabulary and lists
// every predicate/object pair recorded for that subject in the SPO
// permutation, the same access pattern spec.md's S1 scenario describes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/cache"
	"github.com/ad-freiburg/qlever-sub013/internal/config"
	"github.com/ad-freiburg/qlever-sub013/internal/engine"
	"github.com/ad-freiburg/qlever-sub013/internal/execctx"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:   "qlever-example <triples-file>",
		Short: "Build a throwaway index and scan it for the first subject's triples",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0])
		},
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputFile string) error {
	base, err := os.MkdirTemp("", "qlever-example-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(base)
	base = base + "/index"

	cfg := engine.BuildConfig{
		Base:        base,
		InputPath:   inputFile,
		Format:      "nt",
		MemoryLimit: alloc.DefaultBudget().Remaining(),
	}
	if err := engine.BuildIndex(cfg); err != nil {
		return err
	}

	idx, err := engine.OpenIndex(base)
	if err != nil {
		return err
	}
	defer idx.Close()

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	quads, err := firstQuad(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	if quads == "" {
		fmt.Println("input file has no triples")
		return nil
	}

	vocab, ok := idx.Vocab.(*vocabulary.SortedVocabulary)
	if !ok {
		return fmt.Errorf("unexpected vocabulary implementation %T", idx.Vocab)
	}
	vocabID, ok := vocab.GetID(quads)
	if !ok {
		return fmt.Errorf("subject %q not found in vocabulary", quads)
	}
	prefix := []valueid.Id{valueid.MakeFromVocabIndex(vocabID)}

	resultCache, err := cache.New(config.NewDefault())
	if err != nil {
		return err
	}
	named := cache.NewNamedResultCache()
	defer named.Close()
	ec := execctx.NewExecutionContext(idx, resultCache, named, alloc.Unlimited(), context.Background(), time.Now().Add(time.Minute))
	if err := ec.CheckCancelled("scan"); err != nil {
		return err
	}

	rs, err := idx.Scan(context.Background(), execctx.SPO, prefix)
	if err != nil {
		return err
	}

	fmt.Printf("subject: %s\n", quads)
	for _, row := range rs {
		pred := termString(idx, row[1])
		obj := termString(idx, row[2])
		fmt.Printf("%s\t%s\n", pred, obj)
	}
	return nil
}

// firstQuad scans r for the first non-comment, non-blank N-Triples/N-Quads
// line and returns its subject term (the leading whitespace-delimited
// token). It deliberately does not reuse the engine package's statement
// tokenizer: this is a display-only lookup, not index input, so a bare
// first-token split is enough.
func firstQuad(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return fields[0], nil
	}
	return "", scanner.Err()
}

// termString renders an Id back to its vocabulary string (or its decoded
// integer, for a literal value) for display purposes only.
func termString(idx *execctx.Index, id valueid.Id) string {
	if id.Datatype() == valueid.VocabIndex {
		if vocab, ok := idx.Vocab.(*vocabulary.SortedVocabulary); ok {
			if s, ok := vocab.IndexToString(id.GetVocabIndex()); ok {
				return s
			}
		}
	}
	return fmt.Sprintf("%v", id)
}
