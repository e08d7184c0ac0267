// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package text

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collectDelta(t *testing.T, it *DeltaIter) []uint32 {
	t.Helper()
	var got []uint32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	return got
}

func TestDeltaRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "word")
	ids := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	w, err := NewDeltaTextWriter(base, 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := w.Put(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	d, err := Open(base)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if got, want := d.Size(), uint64(len(ids)); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	for pos := range ids {
		if got, want := d.Get(uint64(pos)), ids[pos]; got != want {
			t.Errorf("Get(%d) = %d, want %d", pos, got, want)
		}
	}
	for _, start := range []int{0, 3, 4, 7, 9} {
		it, ok := d.PosAt(uint64(start))
		if !ok {
			t.Fatalf("PosAt(%d) unsupported", start)
		}
		got := collectDelta(t, it)
		want := make([]uint32, len(ids)-start)
		for i := range want {
			want[i] = ids[start+i]
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("PosAt(%d) mismatch (-want +got):\n%s", start, diff)
		}
	}
}

func TestGigaDeltaRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "word")
	const n = 300
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i % 17)
	}

	w, err := NewGigaDeltaTextWriter(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := w.Put(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	g, err := OpenGigaDelta(base)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	if got, want := g.Size(), uint64(n); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	for _, pos := range []int{0, 1, 63, 64, 65, 127, 128, 200, 299} {
		if got, want := g.Get(uint64(pos)), ids[pos]; got != want {
			t.Errorf("Get(%d) = %d, want %d", pos, got, want)
		}
	}
}

func TestIntRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "struct")
	ids := []uint32{10, 20, 30, 40, 50}

	w, err := NewIntTextWriter(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := w.Put(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	ti, err := OpenInt(base)
	if err != nil {
		t.Fatal(err)
	}
	defer ti.Close()

	if got, want := ti.Size(), uint64(len(ids)); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	it, ok := ti.StructAt(1)
	if !ok {
		t.Fatal("StructAt unsupported")
	}
	var got []uint32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := ids[1:]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StructAt(1) mismatch (-want +got):\n%s", diff)
	}
}

func TestIntNoPositionalAccess(t *testing.T) {
	base := filepath.Join(t.TempDir(), "struct")
	w, err := NewIntTextWriter(base)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	ti, err := OpenInt(base)
	if err != nil {
		t.Fatal(err)
	}
	defer ti.Close()
	if _, ok := ti.PosAt(0); ok {
		t.Fatal("PosAt unexpectedly supported on Int layout")
	}
}
