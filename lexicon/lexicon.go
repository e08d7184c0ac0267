// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package lexicon implements the value<->id bijection used by every
// attribute: a concatenation of NUL-terminated strings (.lex), a per-id
// array of byte offsets into that concatenation (.lex.idx), and an array of
// ids in string-sorted order (.lex.srt) enabling binary search by string.
package lexicon

import (
	"sort"

	"github.com/dsnet/corpus/internal/mmio"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "lexicon: " + string(e) }

// Lexicon is a memory-mapped, read-only value<->id store.
type Lexicon struct {
	Name string

	lex *mmio.Map
	idx *mmio.Map
	srt *mmio.Map
}

// Open memory-maps the three files that make up the lexicon rooted at base
// (base + ".lex", ".lex.idx", ".lex.srt").
func Open(base string) (*Lexicon, error) {
	lex, err := mmio.Open(base + ".lex")
	if err != nil {
		return nil, err
	}
	idx, err := mmio.Open(base + ".lex.idx")
	if err != nil {
		lex.Close()
		return nil, err
	}
	srt, err := mmio.Open(base + ".lex.srt")
	if err != nil {
		lex.Close()
		idx.Close()
		return nil, err
	}
	return &Lexicon{Name: base, lex: lex, idx: idx, srt: srt}, nil
}

// Close unmaps the lexicon's files.
func (l *Lexicon) Close() error {
	err := l.lex.Close()
	if ierr := l.idx.Close(); err == nil {
		err = ierr
	}
	if serr := l.srt.Close(); err == nil {
		err = serr
	}
	return err
}

// ID2Str returns the string for id, scanning forward in the .lex buffer from
// its recorded start offset to the terminating NUL byte. The returned string
// is a copy and stays valid after Close.
func (l *Lexicon) ID2Str(id uint32) string {
	idxs := mmio.Uint32s(l.idx.Bytes())
	left := idxs[id]
	buf := l.lex.Bytes()
	right := left
	for int(right) < len(buf) && buf[right] != 0 {
		right++
	}
	return string(buf[left:right])
}

// Str2ID resolves a string to its id via binary search over .lex.srt,
// comparing strings through ID2Str. It reports false when s is not present.
func (l *Lexicon) Str2ID(s string) (uint32, bool) {
	srt := mmio.Uint32s(l.srt.Bytes())
	n := len(srt)
	i := sort.Search(n, func(i int) bool {
		return l.ID2Str(srt[i]) >= s
	})
	if i < n && l.ID2Str(srt[i]) == s {
		return srt[i], true
	}
	return 0, false
}

// IDRange returns the number of distinct ids in the lexicon.
func (l *Lexicon) IDRange() uint32 {
	return uint32(len(l.srt.Bytes()) / 4)
}
