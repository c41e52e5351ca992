// Package models defines data structures for the import pipeline.
package models

import "time"

// ProductKey is the normalized identifier correlating rows across source
// tables, typically a SKU or product code. Rows without one never reach
// the merge stage.
type ProductKey string

// OrderedSet is a string collection with first-seen-wins ordering and
// exact, case-sensitive de-duplication.
type OrderedSet struct {
	values []string
	index  map[string]struct{}
}

// Add appends v unless an equal value is already present. Empty strings
// are ignored. Reports whether the value was appended.
func (s *OrderedSet) Add(v string) bool {
	if v == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.values = append(s.values, v)
	return true
}

// Values returns the contents in insertion order. The returned slice is
// owned by the set and must not be mutated.
func (s *OrderedSet) Values() []string {
	return s.values
}

// First returns the first (preferred) value, or "" when empty.
func (s *OrderedSet) First() string {
	if len(s.values) == 0 {
		return ""
	}
	return s.values[0]
}

// Len returns the number of distinct values.
func (s *OrderedSet) Len() int {
	return len(s.values)
}

// Contains reports whether v was previously added.
func (s *OrderedSet) Contains(v string) bool {
	_, ok := s.index[v]
	return ok
}

// CanonicalProductRecord is the single merged representation of a product
// assembled from possibly many duplicate or partial source rows sharing a
// key. Created on first sighting of the key, mutated by subsequent rows,
// and treated as immutable once a merge pass completes.
type CanonicalProductRecord struct {
	Key                ProductKey
	Names              OrderedSet
	Descriptions       OrderedSet
	ShortDescriptions  OrderedSet
	Categories         OrderedSet
	Features           OrderedSet
	CategorySpecs      OrderedSet
	ImageCandidateURLs OrderedSet
	ResolvedImagePath  string
	RawRowCount        int
}

// Name returns the preferred (first seen) product name.
func (r *CanonicalProductRecord) Name() string {
	return r.Names.First()
}

// CategoryNode is one node of the specification catalog tree,
// depth at most three (top / child1 / child2).
type CategoryNode struct {
	Name     string         `json:"name"`
	Specs    []string       `json:"specs,omitempty"`
	Children []CategoryNode `json:"children,omitempty"`
}

// ImageTask is one queued unit of image work. Tasks are never mutated
// after creation; each either completes or is recorded as failed.
type ImageTask struct {
	Key               ProductKey
	Name              string
	CandidateURL      string
	DestinationFolder string
}

// TaskFailure records one image task that could not be completed.
type TaskFailure struct {
	Key    ProductKey `json:"key"`
	Name   string     `json:"name"`
	URL    string     `json:"url,omitempty"`
	Reason string     `json:"reason"`
}

// AmbiguousMatch records a category resolution that succeeded only via the
// whole-index broad fallback and therefore deserves operator review.
type AmbiguousMatch struct {
	Key        ProductKey `json:"key"`
	RawPath    string     `json:"raw_path"`
	MatchedTop string     `json:"matched_top"`
}

// RunReport aggregates everything an operator reviews after a run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Counts     RunCounts        `json:"counts"`
	Failures   []TaskFailure    `json:"failures,omitempty"`
	Unresolved []TaskFailure    `json:"unresolved,omitempty"`
	Ambiguous  []AmbiguousMatch `json:"ambiguous,omitempty"`
}

// RunCounts are the end-of-run totals printed regardless of how many
// individual rows or images failed.
type RunCounts struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Resolved   int `json:"resolved"`
	Failed     int `json:"failed"`
	Downloaded int `json:"downloaded"`
	Reused     int `json:"reused"`
}
