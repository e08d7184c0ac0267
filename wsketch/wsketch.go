// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package wsketch implements the word-sketch reader: a 3-level bit-packed
// index of (head -> grammatical relation -> collocate -> occurrences),
// synchronized every 64 head ids by a bit-offset index, with a companion
// position stream giving the corpus positions (and, optionally, collocate
// offsets) backing each collocate entry.
package wsketch

import (
	"github.com/dsnet/corpus/attribute"
	"github.com/dsnet/corpus/bitio"
	"github.com/dsnet/corpus/internal/mmio"
	"github.com/dsnet/corpus/lexicon"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "wsketch: " + string(e) }

const (
	headerBytes  = 16
	levelDataOff = 32 * 8 // bit offset of the first record in any level, past the header's delta-coded fields
	blockSize    = 64
	baseVersion  = 4
)

// WMap is a memory-mapped, read-only word-sketch index rooted at base
// (base + ".map0.com", ".map1.com", ".map2.com", ".map0.idx", ".rev").
type WMap struct {
	Name string

	level0  *mmio.Map
	level1  *mmio.Map
	level2  *mmio.Map
	map0idx *mmio.Map
	rev     *wmapRev

	finalID1     uint32
	hasCommonest bool
	hasFtt       bool
	adjustIdx    bool
	minSc        float64
	normSc       float64

	// Version is the format revision read from byte offset 10 of
	// .map0.com (base version 4, incremented by the stored byte).
	// Version >= 5 means the stored final_id1 was pre-decremented by the
	// encoder; version > 5 also adds the has_ftt flag to the level-2
	// header. The idx adjustment in level-2 records follows the adjust_idx
	// header bit alone, whatever the version.
	Version uint32
}

// Open memory-maps the five files that make up the word-sketch index
// rooted at base and parses the three levels' headers.
func Open(base string) (*WMap, error) {
	level0, err := mmio.Open(base + ".map0.com")
	if err != nil {
		return nil, err
	}
	level1, err := mmio.Open(base + ".map1.com")
	if err != nil {
		level0.Close()
		return nil, err
	}
	level2, err := mmio.Open(base + ".map2.com")
	if err != nil {
		level0.Close()
		level1.Close()
		return nil, err
	}
	map0idx, err := mmio.Open(base + ".map0.idx")
	if err != nil {
		level0.Close()
		level1.Close()
		level2.Close()
		return nil, err
	}
	revm, err := mmio.Open(base + ".rev")
	if err != nil {
		level0.Close()
		level1.Close()
		level2.Close()
		map0idx.Close()
		return nil, err
	}

	w := &WMap{
		Name: base, level0: level0, level1: level1, level2: level2,
		map0idx: map0idx, rev: newWMapRev(revm),
		minSc: -10, normSc: float64(uint64(1)<<12) / 30,
	}

	w.Version = baseVersion
	if level0.Len() > 10 {
		w.Version += uint32(level0.Bytes()[10])
	}

	rb0 := bitio.NewReader(mmio.Uint64s(level0.Bytes()), headerBytes*8)
	rb0.Delta() // level size, not otherwise consulted by this reader
	finalID1 := uint32(rb0.Delta())
	if w.Version > baseVersion {
		finalID1--
	}
	w.finalID1 = finalID1

	rb1 := bitio.NewReader(mmio.Uint64s(level1.Bytes()), headerBytes*8)
	rb1.Delta() // level size, not otherwise consulted by this reader

	rb2 := bitio.NewReader(mmio.Uint64s(level2.Bytes()), headerBytes*8)
	rb2.Delta() // level size, not otherwise consulted by this reader
	w.hasCommonest = rb2.Bit()
	w.adjustIdx = rb2.Bit()
	if w.adjustIdx {
		scBits := rb2.Delta()
		maxSc := float64(rb2.Delta())
		minScShifted := rb2.Delta()
		w.minSc = -(float64(minScShifted) - 1)
		w.normSc = float64(uint64(1)<<scBits) / (maxSc - w.minSc)
	}
	if w.Version > baseVersion+1 {
		w.hasFtt = rb2.Bit()
	}
	return w, nil
}

// Close unmaps the index's files.
func (w *WMap) Close() error {
	err := w.level0.Close()
	if ierr := w.level1.Close(); err == nil {
		err = ierr
	}
	if ierr := w.level2.Close(); err == nil {
		err = ierr
	}
	if ierr := w.map0idx.Close(); err == nil {
		err = ierr
	}
	if ierr := w.rev.mem.Close(); err == nil {
		err = ierr
	}
	return err
}

func (w *WMap) blockSeek(id uint32) uint32 {
	idxs := mmio.Uint32s(w.map0idx.Bytes())
	block := id / blockSize
	if int(block) >= len(idxs) {
		block = uint32(len(idxs) - 1)
	}
	return idxs[block]
}

// readRecord decodes one shared-shape record: a delta "add" that either
// extends the running (idx, id) pair (add > 1) or resynchronizes both
// from absolute values carried in the record (add == 1).
func readRecord(rb *bitio.Reader, idx *uint64, id *uint32, adjustIdx bool) {
	add := rb.Delta()
	if add > 1 {
		*idx += add
		if adjustIdx {
			*idx--
		}
		*id += uint32(rb.Delta())
	} else {
		*idx = rb.Delta()
		*id = uint32(rb.Delta()) - 1
	}
}

// Item1 is one head entry: its level-1 bit offset, the count of
// grammatical relations under it, and its raw corpus frequency.
type Item1 struct {
	wmap *WMap

	ID  uint32
	Idx uint64
	Cnt uint64
	Frq uint64
}

// Iter opens an Iter2 over this head's grammatical relations.
func (it *Item1) Iter() *Iter2 {
	return &Iter2{
		wmap:      it.wmap,
		rb:        bitio.NewReader(mmio.Uint64s(it.wmap.level1.Bytes()), int64(it.Idx)),
		remaining: it.Cnt,
	}
}

// Iter1 iterates level-1 (head) records in strictly increasing id order,
// bounded by the header's final_id1.
type Iter1 struct {
	wmap *WMap
	rb   *bitio.Reader
	id   uint32
	idx  uint64
}

// Next returns the next head entry, or false once ids reach final_id1.
func (it *Iter1) Next() (*Item1, bool) {
	if it.id >= it.wmap.finalID1 {
		return nil, false
	}
	readRecord(it.rb, &it.idx, &it.id, false)
	cnt := it.rb.Delta()
	frq := it.rb.Delta()
	return &Item1{wmap: it.wmap, ID: it.id, Idx: it.idx, Cnt: cnt, Frq: frq}, true
}

// IterIds opens an Iter1 over every head entry from the start of the
// level-0 data region.
func (w *WMap) IterIds() *Iter1 {
	return &Iter1{wmap: w, rb: bitio.NewReader(mmio.Uint64s(w.level0.Bytes()), levelDataOff)}
}

// FindID locates the head entry for id by seeking to the nearest
// synchronization point at or before id (map0.idx[id/64]) and scanning
// forward, skipping entries with a smaller id. It reports false if id has
// no head entry (the scan overshoots without an exact match).
func (w *WMap) FindID(id uint32) (*Item1, bool) {
	rb := bitio.NewReader(mmio.Uint64s(w.level0.Bytes()), int64(w.blockSeek(id)))
	var curID uint32
	var curIdx uint64
	for {
		readRecord(rb, &curIdx, &curID, false)
		cnt := rb.Delta()
		frq := rb.Delta()
		if curID < id {
			continue
		}
		item := &Item1{wmap: w, ID: curID, Idx: curIdx, Cnt: cnt, Frq: frq}
		if curID == id {
			return item, true
		}
		return nil, false
	}
}

// Item2 is one grammatical-relation entry under a head: its level-2 bit
// offset, the count of collocate entries under it, its corpus frequency,
// and its normalized rank score.
type Item2 struct {
	wmap *WMap

	ID  uint32
	Idx uint64
	Cnt uint64
	Frq uint64
	Rnk float64
}

// Iter opens an Iter3 over this relation's collocates.
func (it *Item2) Iter() *Iter3 {
	return &Iter3{
		wmap:      it.wmap,
		rb:        bitio.NewReader(mmio.Uint64s(it.wmap.level2.Bytes()), int64(it.Idx)),
		remaining: it.Cnt,
	}
}

// Iter2 iterates level-2 (grammatical relation) records under one head.
type Iter2 struct {
	wmap      *WMap
	rb        *bitio.Reader
	id        uint32
	idx       uint64
	remaining uint64
}

// Next returns the next relation entry, or false once the head's relation
// count is exhausted.
func (it *Iter2) Next() (*Item2, bool) {
	if it.remaining == 0 {
		return nil, false
	}
	it.remaining--
	readRecord(it.rb, &it.idx, &it.id, false)
	cnt := it.rb.Delta()
	rnk := float64(it.rb.Delta())/it.wmap.normSc + it.wmap.minSc
	frq := it.rb.Delta()
	return &Item2{wmap: it.wmap, ID: it.id, Idx: it.idx, Cnt: cnt, Frq: frq, Rnk: rnk}, true
}

// Item3 is one collocate entry under a relation: its position-stream
// offset (Idx, fed to Iter()), corpus frequency, normalized rank score,
// and the optional "commonest modifier"/"first token type" auxiliary id
// lists the encoder may have attached to it.
type Item3 struct {
	ID  uint32
	Idx uint64
	Cnt uint64
	Frq uint64
	Rnk float64

	CommonModifiers []uint32
	FirstTokenTypes []uint32

	wmap *WMap
}

// Iter opens the position stream backing this collocate's occurrences.
func (it *Item3) Iter() *RevStream {
	return it.wmap.rev.poss(it.Idx, it.Cnt)
}

// Iter3 iterates level-3 (collocate) records under one relation.
type Iter3 struct {
	wmap      *WMap
	rb        *bitio.Reader
	id        uint32
	idx       uint64
	remaining uint64
}

func readIDList(rb *bitio.Reader) []uint32 {
	n := rb.Gamma()
	if n <= 1 {
		return nil
	}
	out := make([]uint32, 0, n-1)
	for i := uint64(1); i < n; i++ {
		out = append(out, uint32(rb.Delta()-1))
	}
	return out
}

// Next returns the next collocate entry, or false once the relation's
// collocate count is exhausted.
func (it *Iter3) Next() (*Item3, bool) {
	if it.remaining == 0 {
		return nil, false
	}
	it.remaining--
	readRecord(it.rb, &it.idx, &it.id, it.wmap.adjustIdx)
	cnt := it.rb.Delta()
	rnk := float64(it.rb.Delta())/it.wmap.normSc + it.wmap.minSc
	frq := it.rb.Delta()
	item := &Item3{wmap: it.wmap, ID: it.id, Idx: it.idx, Cnt: cnt, Frq: frq, Rnk: rnk}
	if it.wmap.hasCommonest {
		item.CommonModifiers = readIDList(it.rb)
	}
	if it.wmap.hasFtt {
		item.FirstTokenTypes = readIDList(it.rb)
	}
	return item, true
}

// wmapRev is the position stream backing every collocate's occurrences.
type wmapRev struct {
	mem       *mmio.Map
	alignMult uint64
	adjustPos bool
}

func newWMapRev(mem *mmio.Map) *wmapRev {
	rb := bitio.NewReader(mmio.Uint64s(mem.Bytes()), headerBytes*8)
	alignMult := rb.Delta()
	rb.Delta() // corpus size, not otherwise consulted by this reader
	adjustPos := alignMult == 2
	if adjustPos {
		alignMult = 1
	}
	return &wmapRev{mem: mem, alignMult: alignMult, adjustPos: adjustPos}
}

func (r *wmapRev) poss(from, cnt uint64) *RevStream {
	bitpos := int64(8 * from * r.alignMult)
	return &RevStream{
		rb:        bitio.NewReader(mmio.Uint64s(r.mem.Bytes()), bitpos),
		remaining: cnt,
		adjustPos: r.adjustPos,
		curpos:    0,
	}
}

// RevStream yields a collocate's occurrences as (corpus position,
// optional signed collocate-offset) pairs, the latter present only for
// word-sketch formats that record the collocate's position relative to
// the head.
type RevStream struct {
	rb        *bitio.Reader
	remaining uint64
	adjustPos bool
	curpos    int64
}

// Next returns the next occurrence, or false once the collocate's
// recorded count is exhausted.
func (s *RevStream) Next() (pos uint64, offset int32, hasOffset bool, ok bool) {
	if s.remaining == 0 {
		return 0, 0, false, false
	}
	s.remaining--
	s.curpos += int64(s.rb.Delta())
	if s.adjustPos {
		s.curpos--
	}
	c := int64(s.rb.Gamma())
	if c == 1 {
		return uint64(s.curpos), 0, false, true
	}
	if c%2 == 1 {
		c = -c
	}
	if s.rb.Gamma() != 1 {
		panic(Error("malformed word-sketch position record: missing padding gamma code"))
	}
	return uint64(s.curpos), int32(c / 2), true, true
}

// Len reports how many occurrences remain unread.
func (s *RevStream) Len() uint64 { return s.remaining }

// WSLex resolves the ids that appear throughout a word-sketch index back
// to strings: heads and collocates below the head attribute's id range
// resolve through the head attribute's own lexicon; grammatical relations
// resolve through a lexicon rooted at the word-sketch base; collocate ids
// at or above the head attribute's id range resolve through an optional
// auxiliary collocate-only lexicon (wsbase + ".coll"), after subtracting
// that range.
type WSLex struct {
	grLex   *lexicon.Lexicon
	collLex *lexicon.Lexicon
	wsAttr  attribute.Attr
}

// OpenWSLex opens the grammatical-relation lexicon rooted at wsbase, the
// optional collocate-only lexicon at wsbase+".coll", and wires both to
// wsattr, the head attribute whose lexicon resolves heads and in-range
// collocates.
func OpenWSLex(wsbase string, wsattr attribute.Attr) (*WSLex, error) {
	grLex, err := lexicon.Open(wsbase)
	if err != nil {
		return nil, err
	}
	collLex, err := lexicon.Open(wsbase + ".coll")
	if err != nil {
		collLex = nil
	}
	return &WSLex{grLex: grLex, collLex: collLex, wsAttr: wsattr}, nil
}

// Close unmaps the relation lexicon and, if present, the collocate-only
// lexicon. It does not close the wired head attribute, which the caller
// owns.
func (l *WSLex) Close() error {
	err := l.grLex.Close()
	if l.collLex != nil {
		if ierr := l.collLex.Close(); err == nil {
			err = ierr
		}
	}
	return err
}

// Coll2ID resolves a collocate string to its id, preferring the head
// attribute's own lexicon and falling back to the auxiliary collocate
// lexicon (offset by the head attribute's id range) when not found there.
func (l *WSLex) Coll2ID(coll string) (uint32, bool) {
	if id, ok := l.wsAttr.Str2ID(coll); ok {
		return id, true
	}
	if l.collLex == nil {
		return 0, false
	}
	id, ok := l.collLex.Str2ID(coll)
	if !ok {
		return 0, false
	}
	return id + l.wsAttr.IDRange(), true
}

// ID2Coll resolves a collocate id back to its string, routing ids at or
// above the head attribute's id range through the auxiliary collocate
// lexicon.
func (l *WSLex) ID2Coll(id uint32) string {
	if id >= l.wsAttr.IDRange() && l.collLex != nil {
		return l.collLex.ID2Str(id - l.wsAttr.IDRange())
	}
	return l.wsAttr.ID2Str(id)
}

// ID2Head resolves a head id to its string through the head attribute.
func (l *WSLex) ID2Head(id uint32) string { return l.wsAttr.ID2Str(id) }

// Head2ID resolves a head string to its id through the head attribute.
func (l *WSLex) Head2ID(head string) (uint32, bool) { return l.wsAttr.Str2ID(head) }

// ID2Rel resolves a grammatical-relation id to its string.
func (l *WSLex) ID2Rel(id uint32) string { return l.grLex.ID2Str(id) }

// Rel2ID resolves a grammatical-relation string to its id.
func (l *WSLex) Rel2ID(rel string) (uint32, bool) { return l.grLex.Str2ID(rel) }
