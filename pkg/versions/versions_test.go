package versions

import (
	"testing"

	hb "github.com/cshekharsharma/go-crdt/pkg/happenedbefore"
)

func TestNewSyncedPanicsOnEmptyGroup(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for numMembers < 1")
		}
	}()
	NewSynced(0, 0)
}

func TestNewFullPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty full version vector")
		}
	}()
	NewFull(nil)
}

func TestNewOverridePanicsOnSingleMember(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for single-member override")
		}
	}()
	NewOverride(1, NewOverrideVersion(0, 0, 1))
}

func TestNewOverrideVersionPanicsIfNotStrictlyGreater(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when override <= group")
		}
	}()
	NewOverrideVersion(5, 0, 5)
}

func TestIncrementAtWidensSyncedToOverride(t *testing.T) {
	v := NewSynced(3, 4)
	v.IncrementAt(1)
	if got := v.Iter(); got[0] != 4 || got[1] != 5 || got[2] != 4 {
		t.Fatalf("Iter() = %v, want [4 5 4]", got)
	}
}

func TestIncrementAtWidensOverrideToFull(t *testing.T) {
	v := NewOverride(3, NewOverrideVersion(4, 1, 5))
	v.IncrementAt(0)
	got := v.Iter()
	want := []uint64{5, 5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iter() = %v, want %v", got, want)
		}
	}
}

func TestIncrementAtSameOverridePositionStaysCompact(t *testing.T) {
	v := NewOverride(3, NewOverrideVersion(4, 1, 5))
	v.IncrementAt(1)
	if v.kind != variantOverride {
		t.Fatalf("expected vector to remain Override, got kind=%d", v.kind)
	}
	if v.override.overrideVersion != 6 {
		t.Fatalf("overrideVersion = %d, want 6", v.override.overrideVersion)
	}
}

func TestHBCmpSyncedSynced(t *testing.T) {
	a := NewSynced(2, 3)
	b := NewSynced(2, 5)
	if got := a.HBCmp(b); got != hb.Before {
		t.Errorf("a.HBCmp(b) = %v, want Before", got)
	}
	if got := b.HBCmp(a); got != hb.After {
		t.Errorf("b.HBCmp(a) = %v, want After", got)
	}
	if got := a.HBCmp(a); got != hb.Equal {
		t.Errorf("a.HBCmp(a) = %v, want Equal", got)
	}
}

func TestHBCmpDifferentMemberCountsIncomparable(t *testing.T) {
	a := NewSynced(2, 3)
	b := NewSynced(3, 3)
	if got := a.HBCmp(b); got != hb.Incomparable {
		t.Errorf("a.HBCmp(b) = %v, want Incomparable", got)
	}
}

func TestHBCmpFullFullConcurrent(t *testing.T) {
	a := NewFull([]uint64{1, 5})
	b := NewFull([]uint64{5, 1})
	if got := a.HBCmp(b); got != hb.Concurrent {
		t.Errorf("a.HBCmp(b) = %v, want Concurrent", got)
	}
}

func TestHBCmpCrossVariantAgreesWithFullExpansion(t *testing.T) {
	synced := NewSynced(3, 2)
	full := NewFull([]uint64{2, 2, 2})
	override := NewOverride(3, NewOverrideVersion(2, 1, 5))
	fullOverride := NewFull(override.Iter())

	if got := synced.HBCmp(full); got != hb.Equal {
		t.Errorf("synced.HBCmp(full) = %v, want Equal", got)
	}
	if got := override.HBCmp(fullOverride); got != hb.Equal {
		t.Errorf("override.HBCmp(fullOverride) = %v, want Equal", got)
	}
	if got := synced.HBCmp(override); got != hb.Before {
		t.Errorf("synced.HBCmp(override) = %v, want Before", got)
	}
	if got := override.HBCmp(synced); got != hb.After {
		t.Errorf("override.HBCmp(synced) = %v, want After", got)
	}
}

func TestHBCmpOverrideOverrideDifferentPositions(t *testing.T) {
	a := NewOverride(3, NewOverrideVersion(1, 0, 2))
	b := NewOverride(3, NewOverrideVersion(1, 1, 2))
	got := a.HBCmp(b)
	if got != hb.Concurrent {
		t.Errorf("a.HBCmp(b) = %v, want Concurrent", got)
	}
}
