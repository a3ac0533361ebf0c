package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shardwallet/shardwallet/internal/address"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// maxSkipRange bounds a single "a-b" range in a parsed skip list.
const maxSkipRange = 1 << 20

// SkipSet holds indices the caller already knows. They are never derived,
// never checked and never reported, but the scan cursor moves past them.
// A nil *SkipSet is an empty set.
type SkipSet struct {
	indexes map[uint32]struct{}
}

// NewSkipSet creates a skip set from indices.
func NewSkipSet(indexes ...uint32) *SkipSet {
	s := &SkipSet{indexes: make(map[uint32]struct{}, len(indexes))}
	s.Add(indexes...)
	return s
}

// ParseSkipSet parses a comma separated list of indices and inclusive
// ranges, e.g. "0,3,10-12".
func ParseSkipSet(list string) (*SkipSet, error) {
	s := NewSkipSet()
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, err := parseIndex(lo)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			if end, err = parseIndex(hi); err != nil {
				return nil, err
			}
		}
		if end < start || end-start >= maxSkipRange {
			return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"skip": part})
		}

		for i := start; ; i++ {
			s.Add(i)
			if i == end {
				break
			}
		}
	}
	return s, nil
}

func parseIndex(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || uint32(v) > address.MaxIndex {
		return 0, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"index": s})
	}
	return uint32(v), nil
}

// Add inserts indices into the set.
func (s *SkipSet) Add(indexes ...uint32) {
	if s.indexes == nil {
		s.indexes = make(map[uint32]struct{}, len(indexes))
	}
	for _, i := range indexes {
		s.indexes[i] = struct{}{}
	}
}

// Contains reports whether index is in the set.
func (s *SkipSet) Contains(index uint32) bool {
	if s == nil {
		return false
	}
	_, ok := s.indexes[index]
	return ok
}

// Len returns the number of indices in the set.
func (s *SkipSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.indexes)
}

// Sorted returns the indices in ascending order.
func (s *SkipSet) Sorted() []uint32 {
	if s == nil {
		return nil
	}
	out := make([]uint32, 0, len(s.indexes))
	for i := range s.indexes {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of the set.
func (s *SkipSet) Clone() *SkipSet {
	return NewSkipSet(s.Sorted()...)
}

// NextFree returns the lowest index >= from that is not in the set and
// not above limit. ok is false when no such index exists.
func (s *SkipSet) NextFree(from, limit uint32) (uint32, bool) {
	for i := from; i <= limit; i++ {
		if !s.Contains(i) {
			return i, true
		}
		if i == limit {
			break
		}
	}
	return 0, false
}

// String renders the set compactly, collapsing runs into ranges.
func (s *SkipSet) String() string {
	sorted := s.Sorted()
	parts := make([]string, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, strconv.FormatUint(uint64(sorted[i]), 10))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", sorted[i], sorted[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
