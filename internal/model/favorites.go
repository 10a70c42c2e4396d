package model

import (
	"encoding/json"
	"sort"
)

// FavoriteSet is a set of item IDs. Has and Toggle are the only operations
// the pipeline uses; the rest exist for persistence.
type FavoriteSet map[string]struct{}

// NewFavoriteSet builds a set from ids.
func NewFavoriteSet(ids ...string) FavoriteSet {
	s := make(FavoriteSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a favorite. A nil set has no members.
func (s FavoriteSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership of id and reports whether it is now a favorite.
func (s FavoriteSet) Toggle(id string) bool {
	if _, ok := s[id]; ok {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Clone returns an independent copy.
func (s FavoriteSet) Clone() FavoriteSet {
	out := make(FavoriteSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members sorted.
func (s FavoriteSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the set as a JSON array of IDs.
func (s FavoriteSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes a JSON array of IDs.
func (s *FavoriteSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewFavoriteSet(ids...)
	return nil
}
