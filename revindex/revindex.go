// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package revindex implements the inverted posting-list index (Rev): for
// every id in an attribute's lexicon, the sorted list of positions at
// which that id occurs. Two physical layouts share the format: Sparse
// stores one absolute byte offset and count per id; Dense groups ids into
// blocks of 64, delta-coding offsets and gamma-coding counts in a
// secondary bit stream.
package revindex

import (
	"github.com/dsnet/corpus/bitio"
	"github.com/dsnet/corpus/internal/mmio"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "revindex: " + string(e) }

var (
	magicSparse = [6]byte{0xa3, 'f', 'i', 'n', 'D', 'R'}
	magicDense  = [6]byte{0xa8, 'f', 'i', 'n', 'D', 'R'}
)

const denseBlockSize = 64

// Rev is the capability shared by both physical layouts.
type Rev interface {
	// Count reports how many positions id occurs at.
	Count(id uint32) uint64
	// Id2Poss opens a forward iterator over id's sorted positions.
	Id2Poss(id uint32) *RevIter
}

// RevIter yields a posting list's positions in increasing order. Each
// code on the wire stores the gap to the next position; the iterator
// reconstructs absolute positions by running sum starting from -1.
type RevIter struct {
	rb        *bitio.Reader
	remaining uint64
	last      int64
}

// Next returns the next position, or false once the posting list is
// exhausted.
func (it *RevIter) Next() (uint64, bool) {
	if it.remaining == 0 {
		return 0, false
	}
	it.remaining--
	it.last += int64(it.rb.Delta())
	return uint64(it.last), true
}

// Open memory-maps the Rev index rooted at base, dispatching on the
// 6-byte magic recorded at the start of the .rev file.
func Open(base string) (Rev, error) {
	rev, err := mmio.Open(base + ".rev")
	if err != nil {
		return nil, err
	}
	if rev.Len() < 6 {
		rev.Close()
		return nil, Error("truncated .rev file")
	}
	var magic [6]byte
	copy(magic[:], rev.Bytes()[:6])
	switch magic {
	case magicSparse:
		return openSparse(base, rev)
	case magicDense:
		return openDense(base, rev)
	default:
		rev.Close()
		return nil, Error("unrecognized .rev magic")
	}
}

// Sparse is the per-id absolute-offset-and-count layout.
type Sparse struct {
	Name string

	rev *mmio.Map
	idx *mmio.Map
	cnt *mmio.Map

	alignMult uint64
}

func openSparse(base string, rev *mmio.Map) (*Sparse, error) {
	idx, err := mmio.Open(base + ".rev.idx")
	if err != nil {
		rev.Close()
		return nil, err
	}
	cnt, err := mmio.Open(base + ".rev.cnt")
	if err != nil {
		rev.Close()
		idx.Close()
		return nil, err
	}
	s := &Sparse{Name: base, rev: rev, idx: idx, cnt: cnt}

	idxs := mmio.Uint32s(idx.Bytes())
	// The header's delta-coded alignment multiplier is only consulted
	// when the first index entry is non-zero; this module's writer
	// always emits absolute byte offsets (multiplier 1), so the header
	// field is read but never changes the result in practice.
	if len(idxs) > 0 && idxs[0] > 0 {
		rb := bitio.NewReader(mmio.Uint64s(rev.Bytes()), 6*8)
		s.alignMult = rb.Delta() - 1
	} else {
		s.alignMult = 1
	}
	return s, nil
}

// Close unmaps the layout's files.
func (s *Sparse) Close() error {
	err := s.rev.Close()
	if ierr := s.idx.Close(); err == nil {
		err = ierr
	}
	if cerr := s.cnt.Close(); err == nil {
		err = cerr
	}
	return err
}

// Count reports how many positions id occurs at.
func (s *Sparse) Count(id uint32) uint64 {
	return uint64(mmio.Uint32s(s.cnt.Bytes())[id])
}

// Id2Poss opens a forward iterator over id's sorted positions.
func (s *Sparse) Id2Poss(id uint32) *RevIter {
	cnt := s.Count(id)
	seek := uint64(mmio.Uint32s(s.idx.Bytes())[id]) * s.alignMult
	rb := bitio.NewReader(mmio.Uint64s(s.rev.Bytes()), int64(seek)*8)
	return &RevIter{rb: rb, remaining: cnt, last: -1}
}

// Dense is the 64-id grouped layout: idx0 holds one byte offset into idx1
// per block of 64 ids; idx1 holds, per id in the block, a delta-coded
// offset into .rev and a gamma-coded count, terminated by a 1,1 sentinel
// pair.
type Dense struct {
	Name string

	rev  *mmio.Map
	idx0 *mmio.Map
	idx1 *mmio.Map
}

func openDense(base string, rev *mmio.Map) (*Dense, error) {
	idx0, err := mmio.Open(base + ".rev.idx0")
	if err != nil {
		rev.Close()
		return nil, err
	}
	idx1, err := mmio.Open(base + ".rev.idx1")
	if err != nil {
		rev.Close()
		idx0.Close()
		return nil, err
	}
	return &Dense{Name: base, rev: rev, idx0: idx0, idx1: idx1}, nil
}

// Close unmaps the layout's files.
func (d *Dense) Close() error {
	err := d.rev.Close()
	if ierr := d.idx0.Close(); err == nil {
		err = ierr
	}
	if ierr := d.idx1.Close(); err == nil {
		err = ierr
	}
	return err
}

func (d *Dense) locate(id uint32) (seek, cnt uint64) {
	blockSeek := uint64(mmio.Uint32s(d.idx0.Bytes())[id/denseBlockSize])
	rem := id % denseBlockSize
	rb := bitio.NewReader(mmio.Uint64s(d.idx1.Bytes()), int64(blockSeek)*8)
	for i := uint32(0); i <= rem; i++ {
		seek += rb.Delta()
		cnt = rb.Gamma() - 1
	}
	return seek, cnt
}

// Count reports how many positions id occurs at.
func (d *Dense) Count(id uint32) uint64 {
	_, cnt := d.locate(id)
	return cnt
}

// Id2Poss opens a forward iterator over id's sorted positions.
func (d *Dense) Id2Poss(id uint32) *RevIter {
	seek, cnt := d.locate(id)
	rb := bitio.NewReader(mmio.Uint64s(d.rev.Bytes()), int64(seek)*8)
	return &RevIter{rb: rb, remaining: cnt, last: -1}
}
