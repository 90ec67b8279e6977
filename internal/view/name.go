// Copyright 2025 The QLever Authors.
//
// Package view implements the materialized-view writer, reader, and
// manager from spec.md section 4.5, grounded on
// original_source/src/engine/MaterializedViews.cpp and
// MaterializedView.{h,cpp}.
package view

import (
	"regexp"

	"github.com/ad-freiburg/qlever-sub013/internal/errs"
)

var validViewName = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// validateName rejects anything but alphanumerics and hyphens, mirroring
// MaterializedView::throwIfInvalidName.
func validateName(name string) error {
	if !validViewName.MatchString(name) {
		return errs.Config("view: %q is not a valid materialized view name; only alphanumeric characters and hyphens are allowed", name)
	}
	return nil
}
