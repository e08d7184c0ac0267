// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitio

import (
	"encoding/binary"
	"io"
	"math/bits"
)

// Writer mirrors Reader, but produces a bit stream into a buffered sink. It
// accumulates bits into a partially filled 64-bit atom and spills it to the
// sink, little-endian, whenever it fills.
type Writer struct {
	sink     io.Writer
	part     uint64
	freebits uint
	total    uint64 // bits flushed: whole atoms, plus the final partial bytes written by Finish
}

// NewWriter returns a Writer that appends its output to sink.
func NewWriter(sink io.Writer) *Writer {
	return &Writer{sink: sink, freebits: atomBits}
}

// FreeBits reports how many bits remain in the partially filled atom.
func (w *Writer) FreeBits() uint { return w.freebits }

// UsedBits reports how many bits of the partially filled atom are used.
func (w *Writer) UsedBits() uint { return atomBits - w.freebits }

// BitsWritten returns the exact number of bits emitted so far, including the
// partially filled atom.
func (w *Writer) BitsWritten() uint64 { return w.total + uint64(w.UsedBits()) }

// ByteAlign pads with zero bits up to the next byte boundary.
func (w *Writer) ByteAlign() {
	if rem := w.BitsWritten() % 8; rem != 0 {
		for i := uint64(0); i < 8-rem; i++ {
			w.Bit(false)
		}
	}
}

// Bit writes a single bit.
func (w *Writer) Bit(val bool) {
	w.reserve()
	if val {
		w.part |= 1 << w.UsedBits()
	}
	w.freebits--
}

// Unary writes val (>=1) as a unary code: val-1 zero bits followed by a 1 bit.
func (w *Writer) Unary(val uint64) {
	if val == 0 {
		panic(Error("unary value must be >= 1"))
	}
	length := val - 1
	for length > 0 {
		w.reserve()
		n := uint64(w.freebits)
		if n > length {
			n = length
		}
		w.freebits -= uint(n)
		length -= n
	}
	w.Bit(true)
}

// Gamma writes val (>=1) as an Elias gamma code.
func (w *Writer) Gamma(val uint64) {
	if val == 0 {
		panic(Error("gamma value must be >= 1"))
	}
	length := uint(bits.Len64(val))
	w.Unary(uint64(length))
	rest := val &^ (1 << (length - 1))
	length--
	for length > 0 {
		w.reserve()
		n := w.freebits
		if n > length {
			n = length
		}
		w.part |= rest << w.UsedBits()
		w.freebits -= n
		rest >>= n
		length -= n
	}
}

// Delta writes val (>=1) as an Elias delta code.
func (w *Writer) Delta(val uint64) {
	if val == 0 {
		panic(Error("delta value must be >= 1"))
	}
	length := uint(bits.Len64(val))
	w.Gamma(uint64(length))
	rest := val &^ (1 << (length - 1))
	length--
	for length > 0 {
		w.reserve()
		n := w.freebits
		if n > length {
			n = length
		}
		w.part |= rest << w.UsedBits()
		w.freebits -= n
		rest >>= n
		length -= n
	}
}

func (w *Writer) reserve() {
	if w.freebits == 0 {
		w.emit(w.part)
		w.part = 0
		w.freebits = atomBits
	}
}

func (w *Writer) emit(part uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], part)
	if _, err := w.sink.Write(buf[:]); err != nil {
		panic(err)
	}
	w.total += atomBits
}

// Finish flushes the final partially filled atom, using only as many bytes
// as are needed to hold the bits written (ceil(usedbits/8)), and returns the
// underlying sink.
func (w *Writer) Finish() (io.Writer, error) {
	if w.UsedBits() > 0 {
		n := (w.UsedBits() + 7) / 8
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], w.part)
		if _, err := w.sink.Write(buf[:n]); err != nil {
			return nil, err
		}
		w.total += uint64(n) * 8
		w.part, w.freebits = 0, atomBits
	}
	if f, ok := w.sink.(flusher); ok {
		if err := f.Flush(); err != nil {
			return nil, err
		}
	}
	return w.sink, nil
}

type flusher interface {
	Flush() error
}
