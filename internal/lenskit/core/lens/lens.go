// Package lens infers a coarse architectural lens for a repo-relative
// path, used to group files in the structure zone and architecture
// summary.
package lens

import (
	"path"
	"strings"
)

// Lens is one of the seven recognized architectural groupings.
type Lens string

const (
	LensGuards     Lens = "guards"
	LensDataModels Lens = "data_models"
	LensPipelines  Lens = "pipelines"
	LensEntrypoint Lens = "entrypoints"
	LensUI         Lens = "ui"
	LensCore       Lens = "core"
	LensInterfaces Lens = "interfaces"
)

func parts(p string) []string {
	clean := strings.Trim(path.ToSlash(p), "/")
	return strings.Split(clean, "/")
}

func hasPart(ps []string, name string) bool {
	for _, part := range ps {
		if part == name {
			return true
		}
	}
	return false
}

func stem(p string) string {
	base := path.Base(p)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// InferLens derives a lens from a repo-relative path alone, following a
// fixed precedence: guards > data_models > pipelines > entrypoints > ui
// > core > interfaces, with core as the ultimate fallback.
func InferLens(relPath string) Lens {
	ps := parts(relPath)
	base := path.Base(relPath)
	st := strings.ToLower(stem(relPath))
	lowerBase := strings.ToLower(base)

	// guards
	if hasPart(ps, ".github") || hasPart(ps, "wgx") || hasPart(ps, "tests") ||
		strings.HasPrefix(lowerBase, "test_") {
		return LensGuards
	}

	// data_models
	if hasPart(ps, "contracts") || hasPart(ps, "schemas") ||
		strings.Contains(lowerBase, ".schema.") || st == "models" {
		return LensDataModels
	}

	// pipelines
	if hasPart(ps, "pipelines") || hasPart(ps, "workflows") {
		return LensPipelines
	}

	// entrypoints
	if st == "__main__" || st == "manage" ||
		(hasPart(ps, "docs") && st == "readme") {
		return LensEntrypoint
	}

	// ui
	ext := strings.ToLower(path.Ext(base))
	if hasPart(ps, "ui") || hasPart(ps, "templates") || ext == ".css" || ext == ".html" {
		return LensUI
	}

	// core (checked before interfaces: an explicit "core" marker wins
	// over an "api"/"service" marker appearing later in the same path)
	if hasPart(ps, "core") || hasPart(ps, "logic") || hasPart(ps, "domain") || st == "engine" {
		return LensCore
	}

	// interfaces
	if hasPart(ps, "api") || hasPart(ps, "service") || strings.HasSuffix(st, "_service") {
		return LensInterfaces
	}

	return LensCore
}
