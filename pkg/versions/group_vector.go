package versions

import (
	"fmt"
	"strings"

	"github.com/cshekharsharma/go-crdt/pkg/identifier"
)

// GroupVersionVector binds a VersionVector to an ordered group-membership
// list, so the version at position p belongs to the member at index p.
type GroupVersionVector struct {
	members  identifier.GroupMembership
	versions VersionVector
}

// NewGroupVersionVectorChecked constructs a GroupVersionVector, returning ok=false
// if members and versions disagree in length.
func NewGroupVersionVectorChecked(members identifier.GroupMembership, versions VersionVector) (GroupVersionVector, bool) {
	if members.Len() != versions.NumMembers() {
		return GroupVersionVector{}, false
	}
	return GroupVersionVector{members: members, versions: versions}, true
}

// NewGroupVersionVector constructs a GroupVersionVector, panicking if members
// and versions disagree in length.
func NewGroupVersionVector(members identifier.GroupMembership, versions VersionVector) GroupVersionVector {
	gvv, ok := NewGroupVersionVectorChecked(members, versions)
	if !ok {
		panic(fmt.Sprintf("versions: require matching group size, but there were %d group members compared to a length %d version vector", members.Len(), versions.NumMembers()))
	}
	return gvv
}

// Members returns the group-membership list.
func (g GroupVersionVector) Members() identifier.GroupMembership {
	return g.members
}

// Versions returns the underlying VersionVector.
func (g GroupVersionVector) Versions() VersionVector {
	return g.versions
}

// Len returns the size of the group (and vector).
func (g GroupVersionVector) Len() int {
	return g.versions.NumMembers()
}

// Iter returns (member, version) pairs in member order.
func (g GroupVersionVector) Iter() []MemberVersion {
	vs := g.versions.Iter()
	out := make([]MemberVersion, len(vs))
	for i, v := range vs {
		out[i] = MemberVersion{Member: g.members.At(i), Version: v}
	}
	return out
}

// MemberVersion pairs a group member with its current version.
type MemberVersion struct {
	Member  identifier.Identifier
	Version uint64
}

// String renders the GroupVersionVector as a single line, e.g. "〈a -> 5, b -> 3〉".
func (g GroupVersionVector) String() string {
	pairs := g.Iter()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s -> %d", p.Member.String(), p.Version)
	}
	return "〈" + strings.Join(parts, ", ") + "〉"
}

// FormatLineByLine renders one "member -> version" pair per line, matching the
// reference implementation's line-by-line Display wrapper.
func (g GroupVersionVector) FormatLineByLine() string {
	pairs := g.Iter()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf(" %s -> %d", p.Member.String(), p.Version)
	}
	return "〈\n" + strings.Join(parts, ",\n") + "\n〉"
}

// MissingTo returns, for each member where self is strictly behind other, the
// ordered list of versions (self[m], other[m]] still missing to catch that
// member up. Members where self is already at or ahead of other are omitted.
//
// Panics if self and other have different lengths.
func (g GroupVersionVector) MissingTo(other GroupVersionVector) map[string][]uint64 {
	if g.Len() != other.Len() {
		panic("versions: cannot compare version vectors of different lengths")
	}

	result := make(map[string][]uint64)

	selfV, otherV := g.versions, other.versions
	switch {
	case selfV.kind == variantFull || otherV.kind == variantFull:
		selfVals := selfV.Iter()
		otherPairs := other.Iter()
		for i, ov := range otherPairs {
			if selfVals[i] < ov.Version {
				result[ov.Member.String()] = missingVersionsBetween(selfVals[i], ov.Version)
			}
		}
	case selfV.kind == variantOverride && otherV.kind == variantOverride:
		so, oo := selfV.override, otherV.override
		if so.groupVersion < oo.groupVersion {
			missing := missingVersionsBetween(so.groupVersion, oo.groupVersion)
			for _, m := range other.members.Iter() {
				result[m.String()] = append([]uint64(nil), missing...)
			}
		}
		if so.overridePosition == oo.overridePosition {
			if so.overrideVersion < oo.overrideVersion {
				missing := missingVersionsBetween(so.overrideVersion, oo.overrideVersion)
				result[other.members.At(oo.overridePosition).String()] = missing
			} else {
				delete(result, other.members.At(oo.overridePosition).String())
			}
		} else {
			if so.overrideVersion < oo.groupVersion {
				missing := missingVersionsBetween(so.overrideVersion, oo.groupVersion)
				result[other.members.At(so.overridePosition).String()] = missing
			} else {
				delete(result, other.members.At(so.overridePosition).String())
			}
			if so.groupVersion < oo.overrideVersion {
				missing := missingVersionsBetween(so.groupVersion, oo.overrideVersion)
				result[other.members.At(oo.overridePosition).String()] = missing
			}
		}
	case selfV.kind == variantOverride && otherV.kind == variantSynced:
		so := selfV.override
		otherSynced := otherV.syncedVersion
		if so.groupVersion < otherSynced {
			missing := missingVersionsBetween(so.groupVersion, otherSynced)
			for _, m := range other.members.Iter() {
				result[m.String()] = append([]uint64(nil), missing...)
			}
			if so.overrideVersion < otherSynced {
				missing := missingVersionsBetween(so.overrideVersion, otherSynced)
				result[other.members.At(so.overridePosition).String()] = missing
			} else {
				delete(result, other.members.At(so.overridePosition).String())
			}
		}
	case selfV.kind == variantSynced && otherV.kind == variantOverride:
		selfSynced := selfV.syncedVersion
		oo := otherV.override
		if selfSynced < oo.groupVersion {
			missing := missingVersionsBetween(selfSynced, oo.groupVersion)
			for _, m := range other.members.Iter() {
				result[m.String()] = append([]uint64(nil), missing...)
			}
		}
		if selfSynced < oo.overrideVersion {
			missing := missingVersionsBetween(selfSynced, oo.overrideVersion)
			result[other.members.At(oo.overridePosition).String()] = missing
		}
	default: // both Synced
		selfSynced, otherSynced := selfV.syncedVersion, otherV.syncedVersion
		if selfSynced < otherSynced {
			missing := missingVersionsBetween(selfSynced, otherSynced)
			for _, m := range other.members.Iter() {
				result[m.String()] = append([]uint64(nil), missing...)
			}
		}
	}

	return result
}

// missingVersionsBetween returns (current, updated] as a slice.
func missingVersionsBetween(current, updated uint64) []uint64 {
	out := make([]uint64, 0, updated-current)
	for v := current + 1; v <= updated; v++ {
		out = append(out, v)
	}
	return out
}
