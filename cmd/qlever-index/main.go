// Copyright 2025 The QLever Authors.
//
// qlever-index builds an on-disk index from a triples file, the
// "Index-builder" CLI surface of spec.md section 6: "-i <base> -f <file>
// [-F nt|ttl|nq] [additional text-index flags]".
package main

import (
	"fmt"
	"os"

	"github.com/ad-freiburg/qlever-sub013/internal/alloc"
	"github.com/ad-freiburg/qlever-sub013/internal/engine"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/spf13/cobra"
)

func main() {
	var (
		base          string
		inputFile     string
		format        string
		memLimit      string
		keepTempFiles bool
		onlyPSOPOS    bool
		noPatterns    bool
	)

	cmd := &cobra.Command{
		Use:   "qlever-index",
		Short: "Build an on-disk SPARQL index from a triples file",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := engine.BuildConfig{
				Base:          base,
				InputPath:     inputFile,
				Format:        format,
				KeepTempFiles: keepTempFiles,
				OnlyPSOPOS:    onlyPSOPOS,
				NoPatterns:    noPatterns,
			}
			if memLimit != "" {
				size, err := memsize.Parse(memLimit)
				if err != nil {
					return fmt.Errorf("invalid --memory-limit: %w", err)
				}
				cfg.MemoryLimit = size
			} else {
				cfg.MemoryLimit = alloc.DefaultBudget().Remaining()
			}
			return engine.BuildIndex(cfg)
		},
	}

	cmd.Flags().StringVarP(&base, "index-basename", "i", "", "on-disk index base name (required)")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "input triples file (required)")
	cmd.Flags().StringVarP(&format, "format", "F", "nt", "input file format: nt, ttl, or nq")
	cmd.Flags().StringVar(&memLimit, "memory-limit", "", "memory budget for sorting (e.g. 4GB); defaults to a share of system memory")
	cmd.Flags().BoolVar(&keepTempFiles, "keep-temporary-files", false, "keep the sorter's intermediate spill files")
	cmd.Flags().BoolVar(&onlyPSOPOS, "only-pso-and-pos-permutations", false, "build only the PSO and POS permutations")
	cmd.Flags().BoolVar(&noPatterns, "no-patterns", false, "accepted for compatibility; no has-predicate patterns index is built either way")
	_ = cmd.MarkFlagRequired("index-basename")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
