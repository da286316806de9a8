package core

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyCompositionRootImportsArchiveDrivers ensures the concrete archive
// backends stay behind the core.Store interface. Only the service layer,
// which selects the archive driver, may import them; everything else must
// depend on this package.
func TestOnlyCompositionRootImportsArchiveDrivers(t *testing.T) {
	driverPrefix := "growcore/internal/infra/blob"
	allowed := "growcore/internal/core"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "growcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if pkg.PkgPath == allowed || strings.HasPrefix(pkg.PkgPath, driverPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == driverPrefix || strings.HasPrefix(importPath, driverPrefix+"/") {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of archive driver package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of archive driver packages", len(violations))
	}
}
