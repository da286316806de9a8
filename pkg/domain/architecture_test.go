package domain

import (
	"testing"

	"growcore/testutil"
)

// The domain package is a leaf. Nothing in it may reach into internal
// packages or pull in modules outside the standard library.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"domain must not depend on internal packages")
}

func TestDomainStaysDependencyFree(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden,
		"domain uses only the standard library")
	testutil.AssertNoTransitiveDependency(t, ".", testutil.ThirdPartyImportForbidden,
		"domain uses only the standard library")
}
