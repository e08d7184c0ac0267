// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package structure

import (
	"path/filepath"
	"testing"
)

type rangePair struct{ beg, end uint64 }

func buildStruct(t *testing.T, pairs []rangePair, wide64 bool) Struct {
	t.Helper()
	base := filepath.Join(t.TempDir(), "s")
	w, err := NewWriter(base, wide64)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pairs {
		if err := w.Put(p.beg, p.end); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	s, err := Open(base, wide64)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		switch v := s.(type) {
		case *Struct32:
			v.Close()
		case *Struct64:
			v.Close()
		}
	})
	return s
}

var testPairs = []rangePair{
	{0, 5}, {5, 9}, {9, 9}, {9, 12}, {12, 20},
}

func TestStructRoundTrip32(t *testing.T) {
	s := buildStruct(t, testPairs, false)
	if got, want := s.Len(), uint64(len(testPairs)); got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	for i, p := range testPairs {
		if got := s.BegAt(uint64(i)); got != p.beg {
			t.Errorf("BegAt(%d) = %d, want %d", i, got, p.beg)
		}
		if got := s.EndAt(uint64(i)); got != p.end {
			t.Errorf("EndAt(%d) = %d, want %d", i, got, p.end)
		}
	}
}

func TestStructRoundTrip64(t *testing.T) {
	s := buildStruct(t, testPairs, true)
	for i, p := range testPairs {
		if got := s.BegAt(uint64(i)); got != p.beg {
			t.Errorf("BegAt(%d) = %d, want %d", i, got, p.beg)
		}
		if got := s.EndAt(uint64(i)); got != p.end {
			t.Errorf("EndAt(%d) = %d, want %d", i, got, p.end)
		}
	}
}

func TestFindBegContainment(t *testing.T) {
	s := buildStruct(t, testPairs, false)
	for pos := uint64(0); pos < 20; pos++ {
		beg, ok := FindBeg(s, pos)
		if !ok {
			continue
		}
		if beg > pos {
			t.Errorf("FindBeg(%d) = %d, want <= %d", pos, beg, pos)
		}
	}
}

func TestFindEndCoverage(t *testing.T) {
	s := buildStruct(t, testPairs, false)
	for pos := uint64(0); pos < 20; pos++ {
		sp, _, ok := FindEnd(s, pos)
		if !ok {
			continue
		}
		if got := s.EndAt(sp); got <= pos {
			t.Errorf("FindEnd(%d) -> structpos %d has EndAt=%d, want > %d", pos, sp, got, pos)
		}
	}
}

func TestFindBegOutOfRange(t *testing.T) {
	s := buildStruct(t, testPairs, false)
	if _, ok := FindBeg(s, 1000); ok {
		t.Fatal("FindBeg unexpectedly found a range for an out-of-bounds position")
	}
}

func TestStructEmpty(t *testing.T) {
	s := buildStruct(t, nil, false)
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	if _, ok := FindBeg(s, 0); ok {
		t.Fatal("FindBeg on empty index unexpectedly found a range")
	}
}
