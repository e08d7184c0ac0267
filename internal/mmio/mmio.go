// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package mmio centralizes memory-mapped file access for the persistent
// on-disk formats in this module. It plays the role that the `memmap` crate
// plays in the original Rust source: every reader (Lexicon, Text, Rev,
// Structure, WSketch) opens its files through here and reinterprets the
// mapped bytes as typed slices without copying.
package mmio

import (
	"encoding/binary"
	"os"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "mmio: " + string(e) }

// Map is a read-only memory-mapped file. The zero value is not usable; use
// Open.
type Map struct {
	f *os.File
	m mmap.MMap
}

// Open memory-maps path for reading. An empty file is not mapped; its Map
// has length zero.
func Open(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		return &Map{f: f}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Map{f: f, m: m}, nil
}

// Bytes returns the mapped region.
func (m *Map) Bytes() []byte { return m.m }

// Len returns the length in bytes of the mapped region.
func (m *Map) Len() int { return len(m.m) }

// Close unmaps the region and closes the underlying file.
func (m *Map) Close() error {
	var err error
	if m.m != nil {
		err = m.m.Unmap()
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Uint16s reinterprets the mapped bytes as a slice of little-endian u16
// values. The mapped file is produced exclusively by this module's writers
// on little-endian-assuming hosts, so a direct unsafe cast is used rather
// than an element-by-element decode loop.
func Uint16s(b []byte) []uint16 {
	if len(b)%2 != 0 {
		b = b[:len(b)-len(b)%2]
	}
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), len(b)/2)
}

// Uint32s reinterprets the mapped bytes as a slice of little-endian u32
// values.
func Uint32s(b []byte) []uint32 {
	if len(b)%4 != 0 {
		b = b[:len(b)-len(b)%4]
	}
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// Uint64s reinterprets the mapped bytes as a slice of little-endian u64
// values, the "atom" width bitio.Reader expects.
func Uint64s(b []byte) []uint64 {
	if len(b)%8 != 0 {
		b = b[:len(b)-len(b)%8]
	}
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// U32At reads a single little-endian u32 at byte offset off.
func U32At(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// U16At reads a single little-endian u16 at byte offset off.
func U16At(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// Suffixed joins base with a file suffix, the Go analogue of the original
// encoder's add_suffix helper (bin/encodevert.rs, bin/mkrev.rs): plain string
// concatenation, not filepath.Join, because suffixes like ".lex.idx" are not
// path segments.
func Suffixed(base, suffix string) string { return base + suffix }
