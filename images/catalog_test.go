package images

import (
	"testing"

	"github.com/shopfront/catalogimport/tabular"
)

func testCatalog(t *testing.T) *CSVCatalog {
	t.Helper()
	table := tabular.FromText(
		"sku,name,image_url\n" +
			"A1,Bosch Washing Machine 8kg,http://img.test/a1.jpg\n" +
			"B2,Samsung Fridge NoFrost,http://img.test/b2.jpg\n" +
			"C3,Electric Kettle,http://img.test/c3.jpg\n",
	)
	catalog, err := NewCSVCatalog(table, "sku")
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return catalog
}

func TestCSVCatalogLookupByKey(t *testing.T) {
	catalog := testCatalog(t)
	url, ok := catalog.Lookup("A1", "completely different name")
	if !ok || url != "http://img.test/a1.jpg" {
		t.Fatalf("Lookup by key = %q, %v", url, ok)
	}
}

func TestCSVCatalogLookupByNormalizedName(t *testing.T) {
	catalog := testCatalog(t)
	url, ok := catalog.Lookup("ZZZ", "samsung-fridge-NOFROST")
	if !ok || url != "http://img.test/b2.jpg" {
		t.Fatalf("Lookup by name = %q, %v", url, ok)
	}
}

func TestCSVCatalogLookupByTokenOverlap(t *testing.T) {
	catalog := testCatalog(t)
	// Shares "bosch" and "washing" with the catalog entry.
	url, ok := catalog.Lookup("ZZZ", "Bosch Washing Device")
	if !ok || url != "http://img.test/a1.jpg" {
		t.Fatalf("Lookup by overlap = %q, %v", url, ok)
	}
}

func TestCSVCatalogSingleTokenName(t *testing.T) {
	catalog := testCatalog(t)
	// min(2, tokenCount) = 1 for a one-token query.
	url, ok := catalog.Lookup("ZZZ", "kettle")
	if !ok || url != "http://img.test/c3.jpg" {
		t.Fatalf("Lookup single token = %q, %v", url, ok)
	}
}

func TestCSVCatalogMiss(t *testing.T) {
	catalog := testCatalog(t)
	if url, ok := catalog.Lookup("ZZZ", "vacuum cleaner robot"); ok {
		t.Fatalf("expected miss, got %q", url)
	}
	if url, ok := catalog.Lookup("ZZZ", ""); ok {
		t.Fatalf("expected miss for empty name, got %q", url)
	}
}

func TestCSVCatalogRequiresImageColumn(t *testing.T) {
	table := tabular.FromText("sku,name\nA1,Widget\n")
	if _, err := NewCSVCatalog(table, "sku"); err == nil {
		t.Fatal("expected error for catalog without image column")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Bosch Washing Machine 8kg", want: "bosch-washing-machine-8kg"},
		{input: "  TV & Audio!  ", want: "tv-audio"},
		{input: "___", want: ""},
		{input: "", want: ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
