// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package lexicon

import (
	"path/filepath"
	"testing"
)

func buildLexicon(t *testing.T, values []string) (*Lexicon, map[string]uint32) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "word")
	w, err := NewWriter(base)
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]uint32)
	for _, v := range values {
		id, err := w.IDFor(v)
		if err != nil {
			t.Fatal(err)
		}
		ids[v] = id
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	l, err := Open(base)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, ids
}

func TestLexiconRoundTrip(t *testing.T) {
	l, ids := buildLexicon(t, []string{"a", "b", "a", "c"})
	if got, want := l.IDRange(), uint32(3); got != want {
		t.Fatalf("IDRange() = %d, want %d", got, want)
	}
	for v, id := range ids {
		if got := l.ID2Str(id); got != v {
			t.Errorf("ID2Str(%d) = %q, want %q", id, got, v)
		}
		got, ok := l.Str2ID(v)
		if !ok || got != id {
			t.Errorf("Str2ID(%q) = (%d, %v), want (%d, true)", v, got, ok, id)
		}
	}
}

func TestLexiconRoundTripInvariant(t *testing.T) {
	l, _ := buildLexicon(t, []string{"zebra", "apple", "mango", "apple", "kiwi"})
	for id := uint32(0); id < l.IDRange(); id++ {
		s := l.ID2Str(id)
		got, ok := l.Str2ID(s)
		if !ok || got != id {
			t.Errorf("round-trip failed for id %d (%q): got (%d, %v)", id, s, got, ok)
		}
	}
}

func TestLexiconStr2IDMissing(t *testing.T) {
	l, _ := buildLexicon(t, []string{"a", "b"})
	if _, ok := l.Str2ID("zzz"); ok {
		t.Fatal("Str2ID(\"zzz\") unexpectedly found")
	}
}

func TestLexiconEmpty(t *testing.T) {
	l, _ := buildLexicon(t, nil)
	if got := l.IDRange(); got != 0 {
		t.Fatalf("IDRange() = %d, want 0", got)
	}
	if _, ok := l.Str2ID("anything"); ok {
		t.Fatal("Str2ID on empty lexicon unexpectedly found a match")
	}
}
