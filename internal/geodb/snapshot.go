package geodb

import (
	"cmp"
	"slices"
	"sort"
)

// rangeV4 is an inclusive IPv4 address range with its element.
type rangeV4 struct {
	el   Element
	from IPv4
	to   IPv4
}

// rangeV6 is an inclusive IPv6 address range with its element.
type rangeV6 struct {
	el   Element
	from IPv6
	to   IPv6
}

// Snapshot is an immutable set of disjoint IP ranges with interned
// labels.  A snapshot safely serves any number of concurrent readers
// without synchronization.
type Snapshot struct {
	v4 []rangeV4
	v6 []rangeV6
}

// FindV4 returns the element of the range containing ip.  If no range
// contains ip, it returns the empty element.
func (s *Snapshot) FindV4(ip IPv4) (el Element) {
	i := sort.Search(len(s.v4), func(i int) bool { return s.v4[i].to >= ip })
	if i < len(s.v4) && s.v4[i].from <= ip {
		return s.v4[i].el
	}

	return Element{}
}

// FindV6 returns the element of the range containing ip.  If no range
// contains ip, it returns the empty element.
func (s *Snapshot) FindV6(ip IPv6) (el Element) {
	i := sort.Search(len(s.v6), func(i int) bool { return !s.v6[i].to.Less(ip) })
	if i < len(s.v6) && !ip.Less(s.v6[i].from) {
		return s.v6[i].el
	}

	return Element{}
}

// LenV4 returns the number of IPv4 ranges in the snapshot.
func (s *Snapshot) LenV4() (n int) { return len(s.v4) }

// LenV6 returns the number of IPv6 ranges in the snapshot.
func (s *Snapshot) LenV6() (n int) { return len(s.v6) }

// SnapshotBuilder accumulates ranges and produces an immutable
// [Snapshot].  The zero value is not usable, use [NewSnapshotBuilder].
type SnapshotBuilder struct {
	v4   map[IPv4]rangeV4
	v6   map[IPv6]rangeV6
	pool map[string]string
}

// NewSnapshotBuilder returns a new empty snapshot builder.
func NewSnapshotBuilder() (b *SnapshotBuilder) {
	return &SnapshotBuilder{
		v4:   map[IPv4]rangeV4{},
		v6:   map[IPv6]rangeV6{},
		pool: map[string]string{},
	}
}

// intern returns the pooled copy of s, adding it to the pool when it is
// seen for the first time.
func (b *SnapshotBuilder) intern(s string) (pooled string) {
	if s == "" {
		return ""
	}

	pooled, ok := b.pool[s]
	if !ok {
		b.pool[s] = s
		pooled = s
	}

	return pooled
}

// element builds an interned element from the given data.
func (b *SnapshotBuilder) element(
	countryID uint32,
	stateID uint32,
	cityID uint32,
	countryKey string,
	stateKey string,
	cityName string,
) (el Element) {
	return Element{
		CountryKey: b.intern(countryKey),
		StateKey:   b.intern(stateKey),
		CityName:   b.intern(cityName),
		CountryID:  countryID,
		StateID:    stateID,
		CityID:     cityID,
	}
}

// AddRangeV4 adds an inclusive IPv4 range.  The range is keyed by to,
// so a later range with an equal upper bound replaces the earlier one.
func (b *SnapshotBuilder) AddRangeV4(
	from IPv4,
	to IPv4,
	countryID uint32,
	stateID uint32,
	cityID uint32,
	countryKey string,
	stateKey string,
	cityName string,
) {
	b.v4[to] = rangeV4{
		el:   b.element(countryID, stateID, cityID, countryKey, stateKey, cityName),
		from: from,
		to:   to,
	}
}

// AddRangeV6 adds an inclusive IPv6 range.  The range is keyed by to,
// so a later range with an equal upper bound replaces the earlier one.
func (b *SnapshotBuilder) AddRangeV6(
	from IPv6,
	to IPv6,
	countryID uint32,
	stateID uint32,
	cityID uint32,
	countryKey string,
	stateKey string,
	cityName string,
) {
	b.v6[to] = rangeV6{
		el:   b.element(countryID, stateID, cityID, countryKey, stateKey, cityName),
		from: from,
		to:   to,
	}
}

// Build sorts the accumulated ranges and returns the immutable
// snapshot.  The builder must not be used after the call.
func (b *SnapshotBuilder) Build() (s *Snapshot) {
	s = &Snapshot{
		v4: make([]rangeV4, 0, len(b.v4)),
		v6: make([]rangeV6, 0, len(b.v6)),
	}

	for _, r := range b.v4 {
		s.v4 = append(s.v4, r)
	}

	for _, r := range b.v6 {
		s.v6 = append(s.v6, r)
	}

	slices.SortFunc(s.v4, func(a, b rangeV4) (res int) { return cmp.Compare(a.to, b.to) })
	slices.SortFunc(s.v6, func(a, b rangeV6) (res int) { return a.to.Compare(b.to) })

	return s
}
