// Package model contains domain models passed between layers.
package model

import "time"

// Candidate is one catalog entry. Its JSON shape is the on-disk snapshot
// format, so fields must stay stable.
type Candidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Image      string   `json:"image,omitempty"`
	Mechanics  []string `json:"mechanics"`
	Categories []string `json:"categories"`
	Weight     float64  `json:"weight"`
}

// ListingEntry is one row of a paginated listing page.
type ListingEntry struct {
	ID    string
	Image string
}

// Detail is the per-item metadata fetched for a listing entry.
type Detail struct {
	Name       string
	Mechanics  []string
	Categories []string
	Weight     float64
}

// NewCandidate merges a listing entry with its fetched detail.
func NewCandidate(entry ListingEntry, d Detail) Candidate {
	return Candidate{
		ID:         entry.ID,
		Name:       d.Name,
		Image:      entry.Image,
		Mechanics:  nonNil(d.Mechanics),
		Categories: nonNil(d.Categories),
		Weight:     d.Weight,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Snapshot is the cached candidate collection in discovery order, together
// with the time it was written. It is replaced wholesale, never patched.
type Snapshot struct {
	Candidates []Candidate
	WrittenAt  time.Time
}

// Len returns the number of candidates.
func (s Snapshot) Len() int { return len(s.Candidates) }

// Recommendation is the response-only view of a ranked candidate.
type Recommendation struct {
	Name   string  `json:"name"`
	Image  *string `json:"image"`
	Reason string  `json:"reason"`
}
