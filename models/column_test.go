package models

import "testing"

func TestClassifyHeader(t *testing.T) {
	header := []string{"sku", "name", "category", "subcategory", "subsubcategory", "specifications", "image_url", "price"}
	classes := ClassifyHeader(header, "sku")

	wantRoles := []ColumnRole{
		ColumnKey, ColumnName, ColumnCategory, ColumnCategory,
		ColumnCategory, ColumnSpecLike, ColumnImageURL, ColumnOther,
	}
	for i, want := range wantRoles {
		if classes[i].Role != want {
			t.Errorf("column %q: role = %d, want %d", header[i], classes[i].Role, want)
		}
	}

	for i, col := range []int{2, 3, 4} {
		if classes[col].CategoryLevel != i {
			t.Errorf("column %q: level = %d, want %d", header[col], classes[col].CategoryLevel, i)
		}
	}
}

func TestClassifyColumn(t *testing.T) {
	tests := []struct {
		name string
		want ColumnRole
	}{
		{"SKU", ColumnOther}, // key match is case-sensitive
		{"sku", ColumnKey},
		{"Product Name", ColumnName},
		{"title", ColumnName},
		{"Description", ColumnDescription},
		{"short_description", ColumnShortDescription},
		{"Main Category", ColumnCategory},
		{"Features", ColumnSpecLike},
		{"Attributes", ColumnSpecLike},
		{"Photo URL", ColumnImageURL},
		{"price", ColumnOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyColumn(tt.name, "sku"); got != tt.want {
				t.Fatalf("classifyColumn(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}
