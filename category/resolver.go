package category

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopfront/catalogimport/models"
)

// PathSeparator joins the levels of an assembled category path.
const PathSeparator = "///"

// Index is the normalized three-level lookup built once from a
// specification catalog and read-only thereafter.
type Index struct {
	tops map[string]map[string]map[string][]string
}

// Match is a successful resolution. Broad reports that the specs were
// found only by scanning the whole index (any top, any child1), which can
// cross product families sharing a leaf name and deserves review.
type Match struct {
	Specs []string
	Top   string
	Broad bool
}

// LoadIndex reads a pre-built specification catalog (JSON tree of
// CategoryNode) and builds the lookup index from it.
func LoadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec catalog %s: %w", path, err)
	}
	var nodes []models.CategoryNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("decode spec catalog %s: %w", path, err)
	}
	return BuildIndex(nodes), nil
}

// BuildIndex constructs the normalized index from a category tree.
// Names normalizing identically collapse into one bucket, last writer
// wins, matching how the catalog export behaves.
func BuildIndex(nodes []models.CategoryNode) *Index {
	idx := &Index{tops: make(map[string]map[string]map[string][]string)}
	for _, top := range nodes {
		topKey := Normalize(top.Name)
		if topKey == "" {
			continue
		}
		children, ok := idx.tops[topKey]
		if !ok {
			children = make(map[string]map[string][]string)
			idx.tops[topKey] = children
		}
		for _, child1 := range top.Children {
			child1Key := Normalize(child1.Name)
			if child1Key == "" {
				continue
			}
			leaves, ok := children[child1Key]
			if !ok {
				leaves = make(map[string][]string)
				children[child1Key] = leaves
			}
			for _, child2 := range child1.Children {
				child2Key := Normalize(child2.Name)
				if child2Key == "" {
					continue
				}
				leaves[child2Key] = child2.Specs
			}
		}
	}
	return idx
}

// Resolve matches a raw category path against the index. Fallback is
// staged, first match wins:
//
//  1. a path with fewer than three levels is never guessed against;
//  2. exact top/child1/child2 lookup;
//  3. any child1 under the same top with a matching child2, recovering
//     renamed or redundant middle tiers;
//  4. any child2 anywhere in the index, as a last resort.
//
// A total miss returns nil, not an error; callers decide severity.
func (idx *Index) Resolve(rawPath string) *Match {
	levels := SplitPath(rawPath)
	if len(levels) < 3 {
		return nil
	}

	topKey := Normalize(levels[0])
	child1Key := Normalize(levels[1])
	child2Key := Normalize(levels[2])
	if topKey == "" || child1Key == "" || child2Key == "" {
		return nil
	}

	if children, ok := idx.tops[topKey]; ok {
		if leaves, ok := children[child1Key]; ok {
			if specs, ok := leaves[child2Key]; ok {
				return &Match{Specs: specs, Top: topKey}
			}
		}
		for _, child1 := range sortedKeys(children) {
			if specs, ok := children[child1][child2Key]; ok {
				return &Match{Specs: specs, Top: topKey}
			}
		}
	}

	for _, top := range sortedKeys(idx.tops) {
		children := idx.tops[top]
		for _, child1 := range sortedKeys(children) {
			if specs, ok := children[child1][child2Key]; ok {
				return &Match{Specs: specs, Top: top, Broad: true}
			}
		}
	}
	return nil
}

// sortedKeys keeps the fallback scans deterministic when several buckets
// share a leaf name.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitPath splits a raw category path into its levels, trying the
// triple-slash separator first and falling back to single slashes.
func SplitPath(rawPath string) []string {
	rawPath = strings.TrimSpace(rawPath)
	if rawPath == "" {
		return nil
	}
	sep := PathSeparator
	if !strings.Contains(rawPath, sep) {
		sep = "/"
	}
	parts := strings.Split(rawPath, sep)
	levels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			levels = append(levels, p)
		}
	}
	return levels
}
