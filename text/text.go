// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package text implements the positional id stream of one attribute: three
// physical layouts (Delta, GigaDelta, Int) sharing one on-disk header and
// offering O(1) random access to any position.
package text

import (
	"encoding/binary"

	"github.com/dsnet/corpus/bitio"
	"github.com/dsnet/corpus/internal/mmio"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "text: " + string(e) }

const (
	headerBytes  = 16
	dataAlign    = 32
	gigaBlockLog = 64 * 16 // positions per .text.seg entry
	gigaSubBlock = 64      // positions per .text.off entry
	gigaBlockLen = 2048    // bytes per .text.seg block
)

var (
	magicDelta = [6]byte{0xa3, 'f', 'i', 'n', 'D', 'T'}
	magicInt   = [6]byte{0xa3, 'f', 'i', 'n', 'I', 'T'}
)

// Text is the capability shared by all three physical layouts.
type Text interface {
	// PosAt opens a forward iterator over ids starting at pos. It returns
	// false for layouts that do not support positional decode (Int).
	PosAt(pos uint64) (*DeltaIter, bool)
	// StructAt opens a forward iterator over ids starting at pos. It
	// returns false for layouts that do not support structure decode
	// (Delta, GigaDelta).
	StructAt(pos uint64) (*IntIter, bool)
	// Size reports the number of positions (N).
	Size() uint64
	// Get returns the id at pos.
	Get(pos uint64) uint32
}

// DeltaIter yields successive ids decoded as delta codes (id+1 on disk).
type DeltaIter struct {
	remaining uint64
	rb        *bitio.Reader
}

// Next returns the next id, or false once the iterator is exhausted.
func (it *DeltaIter) Next() (uint32, bool) {
	if it.remaining == 0 {
		return 0, false
	}
	it.remaining--
	return uint32(it.rb.Delta() - 1), true
}

// Delta is the coarse segment-index positional layout (TYPE MD_MD / FD_FD /
// FD_MD).
type Delta struct {
	Name string

	text *mmio.Map
	seg  *mmio.Map

	positions    uint64
	segmentSize  uint64
}

// Open memory-maps the .text and .text.seg files rooted at base.
func Open(base string) (*Delta, error) {
	text, err := mmio.Open(base + ".text")
	if err != nil {
		return nil, err
	}
	seg, err := mmio.Open(base + ".text.seg")
	if err != nil {
		text.Close()
		return nil, err
	}
	d := &Delta{Name: base, text: text, seg: seg}
	hdr := text.Bytes()
	d.segmentSize = binary.LittleEndian.Uint64(hdr[headerBytes:])
	d.positions = binary.LittleEndian.Uint64(hdr[headerBytes+8:])
	return d, nil
}

// Close unmaps the layout's files.
func (d *Delta) Close() error {
	err := d.text.Close()
	if serr := d.seg.Close(); err == nil {
		err = serr
	}
	return err
}

// At opens a DeltaIter starting at pos.
func (d *Delta) At(pos uint64) *DeltaIter {
	segslice := mmio.Uint32s(d.seg.Bytes())
	sp := segslice[pos/d.segmentSize]
	rest := pos % d.segmentSize
	rb := bitio.NewReader(mmio.Uint64s(d.text.Bytes()), int64(sp))
	for ; rest != 0; rest-- {
		rb.Delta()
	}
	return &DeltaIter{remaining: d.positions - pos, rb: rb}
}

func (d *Delta) PosAt(pos uint64) (*DeltaIter, bool) { return d.At(pos), true }
func (d *Delta) StructAt(uint64) (*IntIter, bool)    { return nil, false }
func (d *Delta) Size() uint64                        { return d.positions }
func (d *Delta) Get(pos uint64) uint32 {
	v, _ := d.At(pos).Next()
	return v
}

// GigaDelta is the two-level block/offset index positional layout (TYPE
// MD_MGD / FD_FGD / FD_MGD / NoMem).
type GigaDelta struct {
	Name string

	text   *mmio.Map
	offset *mmio.Map
	segmnt *mmio.Map

	positions uint64
}

// OpenGigaDelta memory-maps the .text, .text.off and .text.seg files rooted
// at base.
func OpenGigaDelta(base string) (*GigaDelta, error) {
	text, err := mmio.Open(base + ".text")
	if err != nil {
		return nil, err
	}
	seg, err := mmio.Open(base + ".text.seg")
	if err != nil {
		text.Close()
		return nil, err
	}
	off, err := mmio.Open(base + ".text.off")
	if err != nil {
		text.Close()
		seg.Close()
		return nil, err
	}
	g := &GigaDelta{Name: base, text: text, offset: off, segmnt: seg}
	hdr := text.Bytes()
	g.positions = binary.LittleEndian.Uint64(hdr[headerBytes+8:])
	return g, nil
}

// Close unmaps the layout's files.
func (g *GigaDelta) Close() error {
	err := g.text.Close()
	if serr := g.segmnt.Close(); err == nil {
		err = serr
	}
	if oerr := g.offset.Close(); err == nil {
		err = oerr
	}
	return err
}

// At opens a DeltaIter starting at pos.
func (g *GigaDelta) At(pos uint64) *DeltaIter {
	offs := mmio.Uint16s(g.offset.Bytes())
	segs := mmio.Uint32s(g.segmnt.Bytes())
	seek := uint64(segs[pos/gigaBlockLog])*uint64(gigaBlockLen*8) + uint64(offs[pos/gigaSubBlock])
	rest := pos % gigaSubBlock
	rb := bitio.NewReader(mmio.Uint64s(g.text.Bytes()), int64(seek))
	for ; rest != 0; rest-- {
		rb.Delta()
	}
	return &DeltaIter{remaining: g.positions - pos, rb: rb}
}

func (g *GigaDelta) PosAt(pos uint64) (*DeltaIter, bool) { return g.At(pos), true }
func (g *GigaDelta) StructAt(uint64) (*IntIter, bool)    { return nil, false }
func (g *GigaDelta) Size() uint64                        { return g.positions }
func (g *GigaDelta) Get(pos uint64) uint32 {
	v, _ := g.At(pos).Next()
	return v
}

// Int is the raw fixed-width layout used for structure attributes and for
// positional attributes configured with TYPE Int.
type Int struct {
	Name string

	text      *mmio.Map
	positions uint64
}

// OpenInt memory-maps the .text file rooted at base.
func OpenInt(base string) (*Int, error) {
	text, err := mmio.Open(base + ".text")
	if err != nil {
		return nil, err
	}
	n := uint64(text.Len())/4 - 4
	return &Int{Name: base, text: text, positions: n}, nil
}

// Close unmaps the layout's file.
func (t *Int) Close() error { return t.text.Close() }

// Get returns the id at pos; the on-disk array is offset by the 4-u32
// header region.
func (t *Int) Get(pos uint64) uint32 {
	return mmio.Uint32s(t.text.Bytes())[pos+4]
}

func (t *Int) Size() uint64 { return t.positions }

func (t *Int) PosAt(uint64) (*DeltaIter, bool) { return nil, false }

func (t *Int) StructAt(pos uint64) (*IntIter, bool) {
	return &IntIter{text: t, position: pos}, true
}

// IntIter yields successive ids from an Int layout.
type IntIter struct {
	text     *Int
	position uint64
}

// Next returns the next id, or false once the iterator is exhausted.
func (it *IntIter) Next() (uint32, bool) {
	if it.position >= it.text.positions {
		return 0, false
	}
	v := it.text.Get(it.position)
	it.position++
	return v, true
}
