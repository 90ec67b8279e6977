// Copyright 2025 The QLever Authors.
package view

import (
	"encoding/json"
	"os"

	"github.com/ad-freiburg/qlever-sub013/internal/compressedrelation"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
)

// View is a read-only, loaded materialized view (spec.md section 4.5's
// reader contract), grounded on MaterializedView's constructor.
type View struct {
	Name       string
	Columns    []string // Columns[0] is the index/scan column
	varToCol   map[string]int
	Permutation *compressedrelation.Permutation
}

// Load reads the viewinfo.json sidecar and the view's SPO permutation for
// base/name, rejecting an invalid name before touching disk.
func Load(base, name string) (*View, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	filename := FilenameBase(base, name)
	infoPath := filename + ".viewinfo.json"

	data, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, errs.NotFound("view: materialized view %q does not exist", name)
	}
	var vi info
	if err := json.Unmarshal(data, &vi); err != nil {
		return nil, errs.WrapCorruption(err, "view: parse %s", infoPath)
	}
	if vi.Version != viewInfoVersion {
		return nil, errs.Corruption("view: %q was written with viewinfo version %d, this build expects %d", name, vi.Version, viewInfoVersion)
	}
	if len(vi.Columns) < 4 {
		return nil, errs.Corruption("view: %q has %d columns, expected at least 4", name, len(vi.Columns))
	}

	perm, err := compressedrelation.Load(filename+".index.spo", filename+".index.spo.meta")
	if err != nil {
		return nil, err
	}

	varToCol := make(map[string]int, len(vi.Columns))
	for i, c := range vi.Columns {
		varToCol[c] = i
	}

	return &View{Name: name, Columns: vi.Columns, varToCol: varToCol, Permutation: perm}, nil
}

// Close releases the view's underlying permutation.
func (v *View) Close() error { return v.Permutation.Close() }

// PayloadBinding requests that the view column named ViewColumn (one of
// v.Columns) be bound to TargetVariable in a rewritten scan, mirroring
// MaterializedViewQuery's requestedVariables_ (view column name -> target
// variable).
type PayloadBinding struct {
	ViewColumn     string
	TargetVariable string
}

// ScanTarget describes how a SPARQL triple pattern targeting this view
// binds its slots, the input to MakeScanConfig (spec.md section 4.5's
// reader contract), grounded on MaterializedView::makeScanConfig.
type ScanTarget struct {
	ViewName          string
	HasGraphPattern   bool // a nested graph pattern was present; always rejected
	ScanVariable      string
	PayloadBindings   []PayloadBinding
}

// ScanConfig is the rewritten index-scan configuration (the
// SparqlTripleSimple analogue): ColumnVars[i] names the variable the
// view's column i is bound to, or "" if that column is neither the scan
// column nor requested as payload.
type ScanConfig struct {
	ViewName   string
	ColumnVars []string
}

// MakeScanConfig validates target against this view and rewrites it into
// a ScanConfig, enforcing every constraint spec.md section 4.5 names:
// name match, no nested graph pattern, a scan-column binding must be
// present, each payload variable used at most once, the scan variable
// may not double as a payload target, and column 0 may never be
// requested as payload.
func (v *View) MakeScanConfig(target ScanTarget, placeholderPredicate, placeholderObject string) (ScanConfig, error) {
	if target.ViewName != v.Name {
		return ScanConfig{}, errs.Config("view: scan target names view %q but this reader is for %q", target.ViewName, v.Name)
	}
	if target.HasGraphPattern {
		return ScanConfig{}, errs.Config("view: a materialized view query may not have a child group graph pattern")
	}
	if target.ScanVariable == "" {
		return ScanConfig{}, errs.Config("view: a variable, IRI, or literal must be bound to the scan column of view %q", v.Name)
	}
	if placeholderPredicate == placeholderObject {
		return ScanConfig{}, errs.Config("view: placeholders for predicate and object must not be the same variable")
	}

	columnVars := make([]string, len(v.Columns))
	columnVars[1] = placeholderPredicate
	columnVars[2] = placeholderObject

	seen := make(map[string]struct{}, len(target.PayloadBindings))
	for _, pb := range target.PayloadBindings {
		col, ok := v.varToCol[pb.ViewColumn]
		if !ok {
			return ScanConfig{}, errs.Config("view: column %q does not exist in materialized view %q", pb.ViewColumn, v.Name)
		}
		if _, dup := seen[pb.TargetVariable]; dup {
			return ScanConfig{}, errs.Config("view: target variable %q requested for more than one payload column", pb.TargetVariable)
		}
		seen[pb.TargetVariable] = struct{}{}

		if pb.TargetVariable == target.ScanVariable {
			return ScanConfig{}, errs.Config("view: the scan-column variable %q may not also be used for a payload column", target.ScanVariable)
		}
		if col == 0 {
			return ScanConfig{}, errs.Config("view: the scan column (index 0) may not be requested as payload")
		}
		columnVars[col] = pb.TargetVariable
	}
	columnVars[0] = target.ScanVariable

	return ScanConfig{ViewName: v.Name, ColumnVars: columnVars}, nil
}
