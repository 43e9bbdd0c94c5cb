// Package difftranslator turns a plain-string edit into an ordered sequence
// of Text DataOperations that reproduce it, so an application can
// let a user (or an external editor buffer) work with plain strings while
// still replicating edits as CRDT operations.
package difftranslator

import (
	"cmp"

	"github.com/cshekharsharma/go-crdt/internal/crdterrors"
	"github.com/cshekharsharma/go-crdt/pkg/coalesced"
	"github.com/cshekharsharma/go-crdt/pkg/text"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rivo/uniseg"
)

// change is an internal grapheme-indexed edit, expressed in the coordinate
// space of the base text (before any operations in this batch are applied).
type change struct {
	insert   bool
	at       int
	delLen   int
	insValue []string
}

func graphemes(s string) []string {
	var out []string
	rest := s
	for len(rest) > 0 {
		cluster, r, _, _ := uniseg.FirstGraphemeClusterInString(rest, -1)
		out = append(out, cluster)
		rest = r
	}
	return out
}

// diffChanges runs a grapheme-level diff between from and to, producing
// Insert/Delete changes in base-text order; Replace opcodes decompose into
// a Delete followed by an Insert, exactly as in the reference diff.
func diffChanges(from, to []string) []change {
	matcher := difflib.NewMatcher(from, to)
	var out []change
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			// Equal: nothing to emit.
		case 'd':
			out = append(out, change{at: op.I1, delLen: op.I2 - op.I1})
		case 'i':
			out = append(out, change{insert: true, at: op.I1, insValue: append([]string(nil), to[op.J1:op.J2]...)})
		case 'r':
			out = append(out, change{at: op.I1, delLen: op.I2 - op.I1})
			out = append(out, change{insert: true, at: op.I1 + (op.I2 - op.I1), insValue: append([]string(nil), to[op.J1:op.J2]...)})
		}
	}
	return out
}

// Translate computes the ordered sequence of DataOperations that, applied
// in order to t, bring its grapheme content to target, and applies them to
// t as it goes (so each operation's pred/succ is verified against t's
// actual current state, never a stale snapshot). gen allocates fresh base
// ids; sub-ids within one base id are used across consecutive elements of
// the same Insert run before a new base id is requested. Each Insert run
// starts from a fresh base id.
func Translate[Id cmp.Ordered](t *text.Text[Id], target string, gen coalesced.IdGenerator[Id]) ([]coalesced.DataOperation[Id, text.GraphemeString], error) {
	from := graphemes(t.String())
	to := graphemes(target)
	changes := diffChanges(from, to)

	var applied []coalesced.DataOperation[Id, text.GraphemeString]
	delta := 0
	for _, ch := range changes {
		if !ch.insert {
			liveStart := ch.at + delta
			liveEnd := liveStart + ch.delLen
			ops, err := t.DeleteRange(liveStart, liveEnd)
			if err != nil {
				return nil, err
			}
			applied = append(applied, ops...)
			delta -= ch.delLen
			continue
		}

		liveAt := ch.at + delta
		ops, err := translateInsert(t, liveAt, ch.insValue, gen)
		if err != nil {
			return nil, err
		}
		applied = append(applied, ops...)
		delta += len(ch.insValue)
	}
	return applied, nil
}

// translateInsert walks value one base-id's worth of elements at a time:
// each base id from gen addresses as many elements as its 16-bit sub-index
// space allows before a new one is requested. Sub-ids left unused by an
// earlier call are not reused. pred is threaded across consecutive chunks
// so remote replicas attach them deterministically in order.
func translateInsert[Id cmp.Ordered](t *text.Text[Id], at int, value []string, gen coalesced.IdGenerator[Id]) ([]coalesced.DataOperation[Id, text.GraphemeString], error) {
	core := t.Core()
	var links coalesced.LinkIds[Id]
	var ok bool
	switch {
	case core.IsEmpty():
		links = core.IdsAfterHead()
		ok = true
	case at == core.Len():
		links = core.IdsBeforeEnd()
		ok = true
	default:
		links, ok = core.IdsAtElementPos(at)
	}
	if !ok {
		return nil, coalesced.ErrOutOfRange
	}

	var ops []coalesced.DataOperation[Id, text.GraphemeString]
	pred := links.Predecessor
	succ := links.Successor
	remaining := value
	for len(remaining) > 0 {
		base, err := gen()
		if err != nil {
			return nil, crdterrors.ErrIdsExhausted
		}
		id := coalesced.Zero(base)
		chunkLen := id.AddressableLen()
		if chunkLen > len(remaining) {
			chunkLen = len(remaining)
		}
		chunkStr := joinGraphemes(remaining[:chunkLen])
		remaining = remaining[chunkLen:]

		op, err := core.InsertWithID(id, pred, succ, text.NewGraphemeString(chunkStr))
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		lastSub := id.WithIndex(id.Index + uint16(chunkLen) - 1)
		pred = lastSub
	}
	return ops, nil
}

func joinGraphemes(gs []string) string {
	out := make([]byte, 0, len(gs)*2)
	for _, g := range gs {
		out = append(out, g...)
	}
	return string(out)
}
