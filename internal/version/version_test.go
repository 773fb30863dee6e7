// ABOUTME: Tests for version constants
// ABOUTME: Checks the values are usable in TXT records and the server hello
package version

import (
	"strconv"
	"strings"
	"testing"
)

func TestVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("expected MAJOR.MINOR.PATCH, got %q", Version)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			t.Errorf("non-numeric component %q in %q", p, Version)
		}
	}
}

func TestProductIsTXTSafe(t *testing.T) {
	if Product == "" {
		t.Fatal("Product should not be empty")
	}
	// Product is published as a single key=value token
	if strings.ContainsAny(Product, "= \t") {
		t.Errorf("Product %q is not safe for a TXT record", Product)
	}
}
