// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package structure

import (
	"bufio"
	"encoding/binary"
	"os"
)

// Writer appends one (beg,end) pair per closed (or pending-empty)
// structure occurrence, in the order occurrences close.
type Writer struct {
	f      *os.File
	w      *bufio.Writer
	wide64 bool
	count  uint64
}

// NewWriter creates the .rng file rooted at base. wide64 selects the
// u64-pair width (TYPE file64/map64); otherwise pairs are stored as u32.
func NewWriter(base string, wide64 bool) (*Writer, error) {
	f, err := os.Create(base + ".rng")
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, w: bufio.NewWriter(f), wide64: wide64}, nil
}

// Put appends the (beg,end) pair for one structure occurrence.
func (w *Writer) Put(beg, end uint64) error {
	if w.wide64 {
		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[:8], beg)
		binary.LittleEndian.PutUint64(buf[8:], end)
		if _, err := w.w.Write(buf[:]); err != nil {
			return err
		}
	} else {
		if beg > 1<<32-1 || end > 1<<32-1 {
			return Error("position overflows u32 width")
		}
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[:4], uint32(beg))
		binary.LittleEndian.PutUint32(buf[4:], uint32(end))
		if _, err := w.w.Write(buf[:]); err != nil {
			return err
		}
	}
	w.count++
	return nil
}

// Len reports how many pairs have been written so far.
func (w *Writer) Len() uint64 { return w.count }

// Finalize flushes and closes the .rng file.
func (w *Writer) Finalize() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}
