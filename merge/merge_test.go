package merge

import (
	"reflect"
	"testing"

	"github.com/shopfront/catalogimport/models"
	"github.com/shopfront/catalogimport/tabular"
)

func TestMergeTableMissingKeyColumn(t *testing.T) {
	table := tabular.FromText("name,price\nWidget,10\n")
	m := NewMerger("sku")
	if err := m.MergeTable(table); err == nil {
		t.Fatal("expected error for missing key column")
	}
}

func TestMergeSkipsKeylessRows(t *testing.T) {
	table := tabular.FromText("sku,name\nA1,Widget\n,Ghost\n  ,Blank\n")
	m := NewMerger("sku")
	if err := m.MergeTable(table); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := m.Skipped(); got != 2 {
		t.Fatalf("skipped = %d, want 2", got)
	}
	if got := len(m.Records()); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
}

func TestMergeIdempotence(t *testing.T) {
	text := "sku,name,category,subcategory,subsubcategory,specifications\n" +
		"SKU1,Widget,A,B,C,Color: Red\n"
	m := NewMerger("sku")
	for i := 0; i < 2; i++ {
		if err := m.MergeTable(tabular.FromText(text)); err != nil {
			t.Fatalf("merge pass %d: %v", i, err)
		}
	}

	rec := m.Record("SKU1")
	if rec == nil {
		t.Fatal("record missing")
	}
	if got := rec.Names.Values(); !reflect.DeepEqual(got, []string{"Widget"}) {
		t.Fatalf("names = %v", got)
	}
	if got := rec.Categories.Values(); !reflect.DeepEqual(got, []string{"A///B///C"}) {
		t.Fatalf("categories = %v", got)
	}
	if got := rec.Features.Values(); !reflect.DeepEqual(got, []string{"Color: Red"}) {
		t.Fatalf("features = %v", got)
	}
	if rec.RawRowCount != 2 {
		t.Fatalf("raw row count = %d, want 2", rec.RawRowCount)
	}
}

func TestMergeSharedKeyAcrossRows(t *testing.T) {
	text := "sku,name,category,subcategory,subsubcategory,specifications\n" +
		"SKU1,Widget,A,B,C,Color: Red\n" +
		"SKU1,Widget Pro,A,B2,C,Color: Red; Weight: 2kg\n"
	m := NewMerger("sku")
	if err := m.MergeTable(tabular.FromText(text)); err != nil {
		t.Fatalf("merge: %v", err)
	}

	records := m.Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]

	wantCategories := []string{"A///B///C", "A///B2///C"}
	if got := rec.Categories.Values(); !reflect.DeepEqual(got, wantCategories) {
		t.Fatalf("categories = %v, want %v", got, wantCategories)
	}

	wantFeatures := []string{"Color: Red", "Weight: 2kg"}
	if got := rec.Features.Values(); !reflect.DeepEqual(got, wantFeatures) {
		t.Fatalf("features = %v, want %v", got, wantFeatures)
	}

	wantNames := []string{"Widget", "Widget Pro"}
	if got := rec.Names.Values(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("names = %v, want %v", got, wantNames)
	}
	if got := rec.Name(); got != "Widget" {
		t.Fatalf("preferred name = %q, want first seen", got)
	}
}

func TestMergeRaggedRows(t *testing.T) {
	// Short row padded, long row truncated, neither aborts the pass.
	text := "sku,name,description\nA1,Widget\nB2,Gadget,Nice,extra,cells\n"
	m := NewMerger("sku")
	if err := m.MergeTable(tabular.FromText(text)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := len(m.Records()); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}
	if got := m.Record("B2").Descriptions.First(); got != "Nice" {
		t.Fatalf("description = %q", got)
	}
}

func TestAssemblePath(t *testing.T) {
	tests := []struct {
		name                string
		top, child1, child2 string
		want                string
	}{
		{name: "three levels", top: "A", child1: "B", child2: "C", want: "A///B///C"},
		{name: "zero child2 placeholder", top: "A", child1: "B", child2: "0", want: "A///B"},
		{name: "missing middle", top: "A", child1: "", child2: "C", want: "A///C"},
		{name: "top only", top: "A", want: "A"},
		{name: "all empty", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssemblePath(tt.top, tt.child1, tt.child2); got != tt.want {
				t.Fatalf("AssemblePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFeatureTokens(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want []string
	}{
		{
			name: "single pair",
			cell: "Color: Red",
			want: []string{"Color: Red", "Color: Red"},
		},
		{
			name: "semicolon separated",
			cell: "Color: Red; Weight: 2kg",
			want: []string{"Color: Red", "Weight: 2kg", "Color: Red", "Weight: 2kg"},
		},
		{
			name: "tag colon prefix",
			cell: ":waterproof;:rechargeable",
			want: []string{"waterproof", "rechargeable"},
		},
		{
			name: "plain token",
			cell: "stainless steel",
			want: []string{"stainless steel"},
		},
		{
			name: "empty",
			cell: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFeatureTokens(tt.cell); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractFeatureTokens(%q) = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestOrderedSetDedup(t *testing.T) {
	var s models.OrderedSet
	if !s.Add("a") || !s.Add("b") {
		t.Fatal("fresh values should be added")
	}
	if s.Add("a") {
		t.Fatal("duplicate must not be re-added")
	}
	if s.Add("") {
		t.Fatal("empty string must be ignored")
	}
	if got := s.Values(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("values = %v", got)
	}
}
