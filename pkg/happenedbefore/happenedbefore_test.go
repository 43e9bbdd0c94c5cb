package happenedbefore

import "testing"

func TestReverse(t *testing.T) {
	cases := map[Ordering]Ordering{
		Before:       After,
		After:        Before,
		Equal:        Equal,
		Concurrent:   Concurrent,
		Incomparable: Incomparable,
	}
	for in, want := range cases {
		if got := in.Reverse(); got != want {
			t.Errorf("%v.Reverse() = %v, want %v", in, got, want)
		}
	}
}

func TestPartialOrder(t *testing.T) {
	cases := []struct {
		in      Ordering
		wantCmp int
		wantOk  bool
	}{
		{Before, -1, true},
		{Equal, 0, true},
		{After, 1, true},
		{Concurrent, 0, false},
		{Incomparable, 0, false},
	}
	for _, c := range cases {
		cmp, ok := c.in.PartialOrder()
		if cmp != c.wantCmp || ok != c.wantOk {
			t.Errorf("%v.PartialOrder() = (%d, %v), want (%d, %v)", c.in, cmp, ok, c.wantCmp, c.wantOk)
		}
	}
}

func TestEncounteredOrderingsResolve(t *testing.T) {
	var e EncounteredOrderings
	if got := e.Resolve(); got != Equal {
		t.Errorf("empty Resolve() = %v, want Equal", got)
	}

	var less EncounteredOrderings
	less.Observe(-1)
	if got := less.Resolve(); got != Before {
		t.Errorf("Resolve() after only less = %v, want Before", got)
	}

	var greater EncounteredOrderings
	greater.Observe(1)
	if got := greater.Resolve(); got != After {
		t.Errorf("Resolve() after only greater = %v, want After", got)
	}

	var both EncounteredOrderings
	both.Observe(-1)
	if both.Done() {
		t.Fatal("Done() true after only one direction observed")
	}
	both.Observe(1)
	if !both.Done() {
		t.Fatal("Done() false after both directions observed")
	}
	if got := both.Resolve(); got != Concurrent {
		t.Errorf("Resolve() after both directions = %v, want Concurrent", got)
	}
}
