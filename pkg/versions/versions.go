// Package versions implements VersionVector: a per-member monotonic counter
// compressed into one of three representations (Synced, Override, Full), with
// widening rules on increment and a full cross-variant happened-before
// comparison algebra.
package versions

import (
	"fmt"
	"strings"

	hb "github.com/cshekharsharma/go-crdt/pkg/happenedbefore"
)

// variant tags which concrete representation a VersionVector currently holds.
type variant int

const (
	variantSynced variant = iota
	variantOverride
	variantFull
)

// VersionVector is a per-member monotonic version counter, stored as whichever
// of the three variants is most compact for the current state. Zero value is
// not valid; construct with NewSynced or NewFull.
type VersionVector struct {
	kind variant

	// Synced / Override share numMembers.
	numMembers int

	syncedVersion uint64

	override OverrideVersion

	full []uint64
}

// OverrideVersion represents the "mostly synced, one member ahead" shape: the
// member at overridePosition sits at overrideVersion, every other member sits
// at groupVersion. overrideVersion must be strictly greater than groupVersion.
type OverrideVersion struct {
	groupVersion    uint64
	overridePosition int
	overrideVersion uint64
}

// NewOverrideVersion constructs an OverrideVersion, panicking if
// overrideVersion does not strictly exceed groupVersion.
func NewOverrideVersion(groupVersion uint64, overridePosition int, overrideVersion uint64) OverrideVersion {
	if !(groupVersion < overrideVersion) {
		panic(fmt.Sprintf("versions: invalid override version: group=%d override=%d", groupVersion, overrideVersion))
	}
	return OverrideVersion{groupVersion: groupVersion, overridePosition: overridePosition, overrideVersion: overrideVersion}
}

func overrideWithNextVersion(groupVersion uint64, overridePosition int) OverrideVersion {
	next := groupVersion + 1
	if next == 0 {
		panic("versions: max version reached")
	}
	return OverrideVersion{groupVersion: groupVersion, overridePosition: overridePosition, overrideVersion: next}
}

// GroupVersion returns the version shared by every member except the one at
// OverridePosition.
func (o OverrideVersion) GroupVersion() uint64 { return o.groupVersion }

// OverridePosition returns the index of the ahead-of-group member.
func (o OverrideVersion) OverridePosition() int { return o.overridePosition }

// OverrideVersion returns the version of the ahead-of-group member.
func (o OverrideVersion) OverrideVersion() uint64 { return o.overrideVersion }

func (o OverrideVersion) toFull(numMembers int) []uint64 {
	entries := make([]uint64, numMembers)
	for i := range entries {
		entries[i] = o.groupVersion
	}
	entries[o.overridePosition] = o.overrideVersion
	return entries
}

func (o OverrideVersion) String() string {
	return fmt.Sprintf("〈%d..., %d:%d, %d...〉", o.groupVersion, o.overridePosition, o.overrideVersion, o.groupVersion)
}

// hbCmpOverride compares two OverrideVersions sharing the same numMembers.
func hbCmpOverride(a, b OverrideVersion) hb.Ordering {
	if a.overridePosition == b.overridePosition {
		switch {
		case a.groupVersion < b.groupVersion:
			switch {
			case a.overrideVersion < b.overrideVersion:
				return hb.Before
			case a.overrideVersion == b.overrideVersion:
				return hb.Before
			default:
				return hb.Concurrent
			}
		case a.groupVersion == b.groupVersion:
			return cmpToHB(a.overrideVersion, b.overrideVersion)
		default: // a.groupVersion > b.groupVersion
			switch {
			case a.overrideVersion < b.overrideVersion:
				return hb.Concurrent
			case a.overrideVersion == b.overrideVersion:
				return hb.After
			default:
				return hb.After
			}
		}
	}
	// Different override positions: one side's override_version compares
	// against the other side's group_version.
	switch {
	case a.overrideVersion < b.groupVersion:
		return hb.Before
	case a.overrideVersion == b.groupVersion:
		return hb.Before
	default: // a.overrideVersion > b.groupVersion
		switch {
		case b.overrideVersion < a.groupVersion:
			return hb.After
		case b.overrideVersion == a.groupVersion:
			return hb.After
		default:
			return hb.Concurrent
		}
	}
}

func cmpToHB(a, b uint64) hb.Ordering {
	switch {
	case a < b:
		return hb.Before
	case a > b:
		return hb.After
	default:
		return hb.Equal
	}
}

// NewSynced creates a fully-synced VersionVector where every one of
// numMembers members is at version. Panics if numMembers < 1.
func NewSynced(numMembers int, version uint64) VersionVector {
	if numMembers < 1 {
		panic("versions: numMembers must be >= 1")
	}
	return VersionVector{kind: variantSynced, numMembers: numMembers, syncedVersion: version}
}

// NewFull creates an explicit per-member VersionVector. Panics if entries is
// empty ("empty pure version vector" is a structural error per spec).
func NewFull(entries []uint64) VersionVector {
	if len(entries) == 0 {
		panic("versions: full version vector must not be empty")
	}
	cp := make([]uint64, len(entries))
	copy(cp, entries)
	return VersionVector{kind: variantFull, full: cp}
}

// NewOverride creates an Override-shaped VersionVector. A single-member
// override is illegal and panics; callers in that situation should use
// NewSynced/NewFull directly.
func NewOverride(numMembers int, version OverrideVersion) VersionVector {
	if numMembers <= 1 {
		panic("versions: override with a single member is not supported")
	}
	return VersionVector{kind: variantOverride, numMembers: numMembers, override: version}
}

// NumMembers returns the number of members this vector tracks.
func (v VersionVector) NumMembers() int {
	switch v.kind {
	case variantFull:
		return len(v.full)
	default:
		return v.numMembers
	}
}

// MaxVersion returns the maximum version across all members.
func (v VersionVector) MaxVersion() uint64 {
	switch v.kind {
	case variantFull:
		max := v.full[0]
		for _, x := range v.full[1:] {
			if x > max {
				max = x
			}
		}
		return max
	case variantOverride:
		return v.override.overrideVersion
	default:
		return v.syncedVersion
	}
}

// SuccAt returns a copy of v with the member at position incremented.
func (v VersionVector) SuccAt(position int) VersionVector {
	next := v.clone()
	next.IncrementAt(position)
	return next
}

func (v VersionVector) clone() VersionVector {
	cp := v
	if v.kind == variantFull {
		cp.full = make([]uint64, len(v.full))
		copy(cp.full, v.full)
	}
	return cp
}

// IncrementAt increments the member at position in place, widening the
// representation (Synced -> Override -> Full) whenever the compact shape can
// no longer represent the result. Panics on out-of-range position or counter
// overflow.
func (v *VersionVector) IncrementAt(position int) {
	if position < 0 || position >= v.NumMembers() {
		panic(fmt.Sprintf("versions: position %d outside of group range (0-%d)", position, v.NumMembers()))
	}
	switch v.kind {
	case variantFull:
		if v.full[position] == ^uint64(0) {
			panic("versions: max version reached")
		}
		v.full[position]++
	case variantOverride:
		if position == v.override.overridePosition {
			if v.override.overrideVersion == ^uint64(0) {
				panic("versions: max version reached")
			}
			v.override.overrideVersion++
		} else {
			full := v.override.toFull(v.numMembers)
			full[position]++
			*v = VersionVector{kind: variantFull, full: full}
		}
	case variantSynced:
		if v.numMembers == 1 {
			if v.syncedVersion == ^uint64(0) {
				panic("versions: max version reached")
			}
			v.syncedVersion++
		} else {
			*v = VersionVector{
				kind:       variantOverride,
				numMembers: v.numMembers,
				override:   overrideWithNextVersion(v.syncedVersion, position),
			}
		}
	}
}

// Iter returns the per-member versions in member order, expanding compact
// representations lazily.
func (v VersionVector) Iter() []uint64 {
	n := v.NumMembers()
	out := make([]uint64, n)
	switch v.kind {
	case variantFull:
		copy(out, v.full)
	case variantOverride:
		for i := 0; i < n; i++ {
			if i == v.override.overridePosition {
				out[i] = v.override.overrideVersion
			} else {
				out[i] = v.override.groupVersion
			}
		}
	case variantSynced:
		for i := range out {
			out[i] = v.syncedVersion
		}
	}
	return out
}

// String renders the VersionVector for debugging and log output.
func (v VersionVector) String() string {
	n := v.NumMembers()
	switch v.kind {
	case variantFull:
		parts := make([]string, len(v.full))
		for i, x := range v.full {
			parts[i] = fmt.Sprintf("%d", x)
		}
		return "〈" + strings.Join(parts, ", ") + "〉"
	case variantOverride:
		last := n - 1
		o := v.override
		switch {
		case o.overridePosition == 0:
			return fmt.Sprintf("〈%d, 1-%d:%d〉", o.overrideVersion, last, o.groupVersion)
		case o.overridePosition == last:
			return fmt.Sprintf("〈0-%d:%d, %d〉", last-1, o.groupVersion, o.overrideVersion)
		default:
			return fmt.Sprintf("〈0-%d:%d, %d:%d, %d-%d:%d〉",
				o.overridePosition-1, o.groupVersion,
				o.overridePosition, o.overrideVersion,
				o.overridePosition+1, last, o.groupVersion)
		}
	default:
		return fmt.Sprintf("〈0-%d:%d〉", n-1, v.syncedVersion)
	}
}

// HBCmp computes the happened-before ordering between v and other across any
// combination of the three variants. Different member counts yield
// Incomparable. Both sides compact (neither Full) short-circuit without
// materializing a Full expansion.
func (v VersionVector) HBCmp(other VersionVector) hb.Ordering {
	if v.NumMembers() != other.NumMembers() {
		return hb.Incomparable
	}
	switch {
	case v.kind == variantFull && other.kind == variantFull:
		return hbCmpFull(v.full, other.full)
	case v.kind == variantFull && other.kind == variantOverride:
		return hbCompareFullOverride(v.full, other.override)
	case v.kind == variantFull && other.kind == variantSynced:
		return hbCompareFullSynced(v.full, other.syncedVersion)
	case v.kind == variantOverride && other.kind == variantFull:
		return hbCompareFullOverride(other.full, v.override).Reverse()
	case v.kind == variantOverride && other.kind == variantOverride:
		return hbCmpOverride(v.override, other.override)
	case v.kind == variantOverride && other.kind == variantSynced:
		return hbCompareOverrideSynced(v.override, other.syncedVersion)
	case v.kind == variantSynced && other.kind == variantFull:
		return hbCompareFullSynced(other.full, v.syncedVersion).Reverse()
	case v.kind == variantSynced && other.kind == variantOverride:
		return hbCompareOverrideSynced(other.override, v.syncedVersion).Reverse()
	default: // both Synced
		return cmpToHB(v.syncedVersion, other.syncedVersion)
	}
}

// Equal reports whether v and other compare Equal under HBCmp.
func (v VersionVector) Equal(other VersionVector) bool {
	return v.HBCmp(other) == hb.Equal
}

func hbCmpFull(a, b []uint64) hb.Ordering {
	if len(a) != len(b) {
		return hb.Incomparable
	}
	var enc hb.EncounteredOrderings
	for i := range a {
		enc.Observe(cmpInt(a[i], b[i]))
		if enc.Done() {
			return hb.Concurrent
		}
	}
	return enc.Resolve()
}

func hbCompareFullOverride(full []uint64, o OverrideVersion) hb.Ordering {
	var enc hb.EncounteredOrderings
	for pos, value := range full {
		var c int
		if pos == o.overridePosition {
			c = cmpInt(value, o.overrideVersion)
		} else {
			c = cmpInt(value, o.groupVersion)
		}
		enc.Observe(c)
		if enc.Done() {
			return hb.Concurrent
		}
	}
	return enc.Resolve()
}

func hbCompareFullSynced(full []uint64, synced uint64) hb.Ordering {
	var enc hb.EncounteredOrderings
	for _, value := range full {
		enc.Observe(cmpInt(value, synced))
		if enc.Done() {
			return hb.Concurrent
		}
	}
	return enc.Resolve()
}

func hbCompareOverrideSynced(o OverrideVersion, synced uint64) hb.Ordering {
	switch {
	case o.groupVersion < synced:
		switch {
		case o.overrideVersion < synced:
			return hb.Before
		case o.overrideVersion == synced:
			return hb.Before
		default:
			return hb.Concurrent
		}
	default: // group_version >= synced
		return hb.After
	}
}

func cmpInt(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
