// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package attribute ties a Lexicon, a Text and a Rev together into one
// positional attribute, in two flavors: Std (directly encoded) and
// Dynamic (derived from another attribute through an id translation
// table).
package attribute

import (
	"github.com/dsnet/corpus/internal/mmio"
	"github.com/dsnet/corpus/lexicon"
	"github.com/dsnet/corpus/revindex"
	"github.com/dsnet/corpus/text"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "attribute: " + string(e) }

// Iterator yields successive ids, the common shape of text.DeltaIter,
// text.IntIter and the derived-id iterator produced by Dynamic.
type Iterator interface {
	Next() (uint32, bool)
}

// Frequency is satisfied by anything that can report an id's occurrence
// count.
type Frequency interface {
	Frq(id uint32) uint64
}

// Attr is the capability shared by Std and Dynamic attributes.
type Attr interface {
	Frequency
	// IterIds opens a forward id iterator starting at frompos.
	IterIds(frompos uint64) Iterator
	ID2Str(id uint32) string
	Str2ID(s string) (uint32, bool)
	RevIdx() revindex.Rev
	Text() text.Text
	IDRange() uint32
}

// Std is an attribute encoded directly as a Lexicon + Text + Rev triple.
type Std struct {
	Path string
	Name string

	Lex *lexicon.Lexicon
	Txt text.Text
	Rev revindex.Rev
}

// Close closes the attribute's Lexicon and Text.
func (a *Std) Close() error {
	err := a.Lex.Close()
	if cerr, ok := a.Txt.(interface{ Close() error }); ok {
		if ierr := cerr.Close(); err == nil {
			err = ierr
		}
	}
	if cerr, ok := a.Rev.(interface{ Close() error }); ok {
		if ierr := cerr.Close(); err == nil {
			err = ierr
		}
	}
	return err
}

// IterIds opens a forward id iterator starting at frompos, preferring
// positional decode and falling back to structure decode.
func (a *Std) IterIds(frompos uint64) Iterator {
	if it, ok := a.Txt.PosAt(frompos); ok {
		return it
	}
	if it, ok := a.Txt.StructAt(frompos); ok {
		return it
	}
	return emptyIter{}
}

func (a *Std) ID2Str(id uint32) string          { return a.Lex.ID2Str(id) }
func (a *Std) Str2ID(s string) (uint32, bool)   { return a.Lex.Str2ID(s) }
func (a *Std) RevIdx() revindex.Rev             { return a.Rev }
func (a *Std) Text() text.Text                  { return a.Txt }
func (a *Std) IDRange() uint32                  { return a.Lex.IDRange() }
func (a *Std) Frq(id uint32) uint64             { return a.Rev.Count(id) }

// Dynamic is an attribute derived from another attribute (FromAttr)
// through a per-source-id translation table (ridx), with its own Lexicon
// and its own reverse index (derived id -> source ids, LRev).
type Dynamic struct {
	Path string
	Name string

	Lex      *lexicon.Lexicon
	FromAttr Attr
	ridx     *mmio.Map
	LRev     revindex.Rev
}

// OpenDynamic opens the ridx translation table rooted at base (base +
// ".lex.ridx") alongside the attribute's own Lexicon and reverse index.
func OpenDynamic(base, name string, fromAttr Attr) (*Dynamic, error) {
	lex, err := lexicon.Open(base)
	if err != nil {
		return nil, err
	}
	ridx, err := mmio.Open(base + ".lex.ridx")
	if err != nil {
		lex.Close()
		return nil, err
	}
	lrev, err := revindex.Open(base)
	if err != nil {
		lex.Close()
		ridx.Close()
		return nil, err
	}
	return &Dynamic{
		Path: base, Name: name,
		Lex: lex, FromAttr: fromAttr, ridx: ridx, LRev: lrev,
	}, nil
}

// Close closes the attribute's own Lexicon, translation table and
// reverse index. It does not close FromAttr, which the caller owns.
func (d *Dynamic) Close() error {
	err := d.Lex.Close()
	if ierr := d.ridx.Close(); err == nil {
		err = ierr
	}
	if cerr, ok := d.LRev.(interface{ Close() error }); ok {
		if ierr := cerr.Close(); err == nil {
			err = ierr
		}
	}
	return err
}

type dynIter struct {
	src Iterator
	d   *Dynamic
}

func (it *dynIter) Next() (uint32, bool) {
	orgid, ok := it.src.Next()
	if !ok {
		return 0, false
	}
	return mmio.Uint32s(it.d.ridx.Bytes())[orgid], true
}

// IterIds opens a forward id iterator starting at frompos, translating
// every id yielded by FromAttr through the ridx table.
func (d *Dynamic) IterIds(frompos uint64) Iterator {
	return &dynIter{src: d.FromAttr.IterIds(frompos), d: d}
}

func (d *Dynamic) ID2Str(id uint32) string        { return d.Lex.ID2Str(id) }
func (d *Dynamic) Str2ID(s string) (uint32, bool) { return d.Lex.Str2ID(s) }
func (d *Dynamic) RevIdx() revindex.Rev           { return d.FromAttr.RevIdx() }
func (d *Dynamic) Text() text.Text                { return d.FromAttr.Text() }
func (d *Dynamic) IDRange() uint32                { return d.Lex.IDRange() }

// Frq sums the source attribute's frequency over every source id this
// derived id was translated from.
func (d *Dynamic) Frq(id uint32) uint64 {
	var tot uint64
	it := d.LRev.Id2Poss(id)
	for {
		oid, ok := it.Next()
		if !ok {
			break
		}
		tot += d.FromAttr.Frq(uint32(oid))
	}
	return tot
}

type emptyIter struct{}

func (emptyIter) Next() (uint32, bool) { return 0, false }
