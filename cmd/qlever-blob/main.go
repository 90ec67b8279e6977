// Copyright 2025 The QLever Authors.
//
// qlever-blob builds an index and serializes it to a distributable blob,
// the "Blob builder" CLI surface of spec.md section 6:
// "-i -f -F -j <jsonCachedQueries> -o <blobFile>".
package main

import (
	"fmt"
	"os"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/cache"
	"github.com/ad-freiburg/qlever-sub013/internal/engine"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
	"github.com/spf13/cobra"
)

func main() {
	var (
		base             string
		inputFile        string
		format           string
		cachedQueriesRaw string
		outFile          string
	)

	cmd := &cobra.Command{
		Use:   "qlever-blob",
		Short: "Build an index and serialize it to a distributable blob",
		RunE: func(_ *cobra.Command, _ []string) error {
			if outFile == "" {
				return fmt.Errorf("--output is required")
			}
			// cachedQueriesRaw names a JSON file of queries to pre-evaluate and
			// pin before serializing; pre-evaluation requires the external
			// query planner (out of spec.md's scope), so only its presence is
			// validated here and an empty named-result cache is embedded.
			if cachedQueriesRaw != "" {
				if _, err := os.Stat(cachedQueriesRaw); err != nil {
					return fmt.Errorf("reading --cached-queries: %w", err)
				}
			}

			cfg := engine.BuildConfig{
				Base:        base,
				InputPath:   inputFile,
				Format:      format,
				MemoryLimit: alloc.DefaultBudget().Remaining(),
			}
			if err := engine.BuildIndex(cfg); err != nil {
				return err
			}

			vocab, err := vocabulary.Load(base + ".vocabulary.internal")
			if err != nil {
				return err
			}
			numTriples, err := engine.ReadMetadata(base)
			if err != nil {
				return err
			}
			named := cache.NewNamedResultCache()
			defer named.Close()

			return engine.SerializeToBlobFile(outFile, vocab, named, numTriples)
		},
	}

	cmd.Flags().StringVarP(&base, "index-basename", "i", "", "on-disk index base name (required)")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "input triples file (required)")
	cmd.Flags().StringVarP(&format, "format", "F", "nt", "input file format: nt, ttl, or nq")
	cmd.Flags().StringVarP(&cachedQueriesRaw, "cached-queries", "j", "", "JSON file naming queries to pre-evaluate and pin")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output blob file path (required)")
	_ = cmd.MarkFlagRequired("index-basename")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("output")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
