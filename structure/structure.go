// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package structure implements the sorted (beg,end) position-range index
// (.rng) that backs every structural attribute (sentence, document,
// paragraph, ...): O(1) random access to a range by its structpos, plus
// the point-membership search primitives used to map a corpus position
// back to the structure that contains it.
package structure

import (
	"encoding/binary"

	"github.com/dsnet/corpus/internal/mmio"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "structure: " + string(e) }

// Sentinel is the out-of-range marker returned by the search primitives,
// matching the original format's use of u64::MAX.
const Sentinel = ^uint64(0)

// Struct is the capability shared by both index widths.
type Struct interface {
	// BegAt returns the beginning corpus position of the range at
	// structpos.
	BegAt(structpos uint64) uint64
	// EndAt returns the (exclusive) ending corpus position of the range
	// at structpos.
	EndAt(structpos uint64) uint64
	// Len returns the number of ranges in the index.
	Len() uint64
}

// Struct32 is the narrow (u32 pair, 8-byte stride) index width.
type Struct32 struct {
	Name string
	rng  *mmio.Map
}

// Open32 memory-maps the .rng file rooted at base as a Struct32.
func Open32(base string) (*Struct32, error) {
	rng, err := mmio.Open(base + ".rng")
	if err != nil {
		return nil, err
	}
	return &Struct32{Name: base, rng: rng}, nil
}

// Close unmaps the index's file.
func (s *Struct32) Close() error { return s.rng.Close() }

// BegAt returns the beginning corpus position of the range at structpos.
func (s *Struct32) BegAt(structpos uint64) uint64 {
	return uint64(mmio.Uint32s(s.rng.Bytes())[structpos*2])
}

// EndAt returns the ending corpus position of the range at structpos.
func (s *Struct32) EndAt(structpos uint64) uint64 {
	return uint64(mmio.Uint32s(s.rng.Bytes())[structpos*2+1])
}

// Len returns the number of ranges in the index.
func (s *Struct32) Len() uint64 { return uint64(s.rng.Len()) / 8 }

// Struct64 is the wide (u64 pair, 16-byte stride) index width, used for
// TYPE file64/map64 structures.
type Struct64 struct {
	Name string
	rng  *mmio.Map
}

// Open64 memory-maps the .rng file rooted at base as a Struct64.
func Open64(base string) (*Struct64, error) {
	rng, err := mmio.Open(base + ".rng")
	if err != nil {
		return nil, err
	}
	return &Struct64{Name: base, rng: rng}, nil
}

// Close unmaps the index's file.
func (s *Struct64) Close() error { return s.rng.Close() }

// BegAt returns the beginning corpus position of the range at structpos.
func (s *Struct64) BegAt(structpos uint64) uint64 {
	b := s.rng.Bytes()
	return binary.LittleEndian.Uint64(b[structpos*16:])
}

// EndAt returns the ending corpus position of the range at structpos.
func (s *Struct64) EndAt(structpos uint64) uint64 {
	b := s.rng.Bytes()
	return binary.LittleEndian.Uint64(b[structpos*16+8:])
}

// Len returns the number of ranges in the index.
func (s *Struct64) Len() uint64 { return uint64(s.rng.Len()) / 16 }

// Open memory-maps the .rng file rooted at base, choosing the width
// according to wide64 (TYPE file64/map64 structures use the u64 width).
func Open(base string, wide64 bool) (Struct, error) {
	if wide64 {
		return Open64(base)
	}
	return Open32(base)
}

func exponentialFindLastBegLE(s Struct, p uint64) uint64 {
	n := s.Len()
	var curr, incr uint64 = 0, 1
	for curr+incr < n && s.BegAt(curr+incr) <= p {
		curr += incr
		incr *= 2
	}
	for incr > 0 {
		if curr+incr < n && s.BegAt(curr+incr) <= p {
			curr += incr
		}
		incr /= 2
	}
	return curr
}

// FindBeg locates the range containing corpus position p. It returns the
// beginning position of that range and true, or (Sentinel, false) if no
// range covers p.
func FindBeg(s Struct, p uint64) (uint64, bool) {
	n := s.Len()
	if n == 0 {
		return Sentinel, false
	}
	curr := exponentialFindLastBegLE(s, p)
	if s.BegAt(curr) < p {
		if curr+1 < n {
			curr++
		}
	} else {
		for curr > 0 && s.BegAt(curr-1) == s.BegAt(curr) {
			curr--
		}
	}
	if p >= s.BegAt(curr) && p < s.EndAt(curr) {
		return s.BegAt(curr), true
	}
	return Sentinel, false
}

// findEndRaw returns the smallest structpos in [0,n] with EndAt(s) > p,
// where n (= s.Len()) denotes "no such range".
func findEndRaw(s Struct, p uint64) uint64 {
	n := s.Len()
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if s.EndAt(mid) > p {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// FindEnd locates the smallest structpos s with EndAt(s) > p. It returns
// that structpos together with its BegAt value, or (Sentinel, Sentinel,
// false) if no range ends after p.
func FindEnd(s Struct, p uint64) (structpos, begAt uint64, ok bool) {
	sp := findEndRaw(s, p)
	if sp >= s.Len() {
		return Sentinel, Sentinel, false
	}
	return sp, s.BegAt(sp), true
}

// NumAtPos returns the structpos of the range containing corpus position
// p, including the empty-at-boundary case of a zero-length range located
// exactly at p+1.
func NumAtPos(s Struct, p uint64) (uint64, bool) {
	n := s.Len()
	sp := findEndRaw(s, p+1)
	if sp < n && s.BegAt(sp) <= p {
		return sp, true
	}
	if sp < n && s.BegAt(sp) == p+1 && s.EndAt(sp) == p+1 {
		return sp, true
	}
	if sp > 0 && s.BegAt(sp-1) == p {
		return sp - 1, true
	}
	return 0, false
}
