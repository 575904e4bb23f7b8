package types

import (
	"sort"
	"strings"
	"time"
)

// Identity is an account handle as observed on X, without the leading "@".
// Comparison is case-sensitive.
type Identity string

// NormalizeHandle trims whitespace and a leading "@" from user input.
func NormalizeHandle(s string) Identity {
	return Identity(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// NormalizeHandles normalizes a list of handles, dropping empty entries.
func NormalizeHandles(in []string) []Identity {
	out := make([]Identity, 0, len(in))
	for _, s := range in {
		if id := NormalizeHandle(s); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FeedItem is one item captured while scrolling a feed
type FeedItem struct {
	Identity   Identity  `json:"identity"`
	Key        string    `json:"key"`      // per-item id (status id), not the identity
	Position   int       `json:"position"` // order in which the item was first seen
	ObservedAt time.Time `json:"observed_at,omitempty"`
	Source     string    `json:"source"`
}

// TargetPost is the post of a target account whose replies are collected
type TargetPost struct {
	Owner  Identity `json:"owner"`
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Pinned bool     `json:"pinned"`
}

// IdentitySet is a set of identities
type IdentitySet map[Identity]struct{}

// NewIdentitySet builds a set from the given identities
func NewIdentitySet(ids ...Identity) IdentitySet {
	s := make(IdentitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new
func (s IdentitySet) Add(id Identity) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership. A nil set has no members.
func (s IdentitySet) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order
func (s IdentitySet) Sorted() []Identity {
	out := make([]Identity, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
