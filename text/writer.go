// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package text

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/dsnet/corpus/bitio"
)

func writeHeader(f *os.File, magic [6]byte) error {
	var hdr [headerBytes + 16]byte
	copy(hdr[:6], magic[:])
	_, err := f.Write(hdr[:])
	return err
}

func patchUint64(f *os.File, off int64, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := f.WriteAt(buf[:], off)
	return err
}

// DeltaTextWriter builds the Delta physical layout: a segment index
// (.text.seg) recording the absolute bit offset of every SegmentSize-th
// position, and a delta-coded id stream (.text).
type DeltaTextWriter struct {
	textf *os.File
	segf  *bufio.Writer
	segff *os.File
	bw    *bitio.Writer

	segmentSize uint64
	count       uint64
}

// NewDeltaTextWriter creates the .text and .text.seg files rooted at base.
// segmentSize sets how many positions separate consecutive segment-index
// entries.
func NewDeltaTextWriter(base string, segmentSize uint64) (*DeltaTextWriter, error) {
	if segmentSize == 0 {
		return nil, Error("segment size must be >= 1")
	}
	textf, err := os.Create(base + ".text")
	if err != nil {
		return nil, err
	}
	if err := writeHeader(textf, magicDelta); err != nil {
		textf.Close()
		return nil, err
	}
	segff, err := os.Create(base + ".text.seg")
	if err != nil {
		textf.Close()
		return nil, err
	}
	return &DeltaTextWriter{
		textf:       textf,
		segf:        bufio.NewWriter(segff),
		segff:       segff,
		bw:          bitio.NewWriter(bufio.NewWriter(textf)),
		segmentSize: segmentSize,
	}, nil
}

// Put appends id to the stream.
func (w *DeltaTextWriter) Put(id uint32) error {
	if w.count%w.segmentSize == 0 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int64(headerBytes+16)*8+int64(w.bw.BitsWritten())))
		if _, err := w.segf.Write(buf[:]); err != nil {
			return err
		}
	}
	w.bw.Delta(uint64(id) + 1)
	w.count++
	return nil
}

// Finalize flushes the bitstream and patches the header with the segment
// size and final position count.
func (w *DeltaTextWriter) Finalize() error {
	if _, err := w.bw.Finish(); err != nil {
		return err
	}
	if pad := (8 - w.bw.BitsWritten()/8%8) % 8; pad != 0 {
		if _, err := w.textf.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	if err := w.segf.Flush(); err != nil {
		return err
	}
	if err := w.segff.Close(); err != nil {
		return err
	}
	if err := patchUint64(w.textf, headerBytes, w.segmentSize); err != nil {
		return err
	}
	if err := patchUint64(w.textf, headerBytes+8, w.count); err != nil {
		return err
	}
	return w.textf.Close()
}

// GigaDeltaTextWriter builds the GigaDelta physical layout: a coarse
// per-2048-byte-block index (.text.seg), a fine per-64-position offset
// from the start of that block (.text.off, 16 bits), and a delta-coded id
// stream (.text). The .text.off entries count bits, not bytes.
type GigaDeltaTextWriter struct {
	textf  *os.File
	segf   *bufio.Writer
	segff  *os.File
	offf   *bufio.Writer
	offff  *os.File
	bw     *bitio.Writer

	count     uint64
	blockBase int64
}

// NewGigaDeltaTextWriter creates the .text, .text.seg and .text.off files
// rooted at base.
func NewGigaDeltaTextWriter(base string) (*GigaDeltaTextWriter, error) {
	textf, err := os.Create(base + ".text")
	if err != nil {
		return nil, err
	}
	if err := writeHeader(textf, magicDelta); err != nil {
		textf.Close()
		return nil, err
	}
	segff, err := os.Create(base + ".text.seg")
	if err != nil {
		textf.Close()
		return nil, err
	}
	offff, err := os.Create(base + ".text.off")
	if err != nil {
		textf.Close()
		segff.Close()
		return nil, err
	}
	return &GigaDeltaTextWriter{
		textf: textf,
		segf:  bufio.NewWriter(segff),
		segff: segff,
		offf:  bufio.NewWriter(offff),
		offff: offff,
		bw:    bitio.NewWriter(bufio.NewWriter(textf)),
	}, nil
}

// Put appends id to the stream.
func (w *GigaDeltaTextWriter) Put(id uint32) error {
	bitpos := int64(headerBytes+16)*8 + int64(w.bw.BitsWritten())
	if w.count%gigaBlockLog == 0 {
		w.blockBase = bitpos - bitpos%(gigaBlockLen*8)
	}
	if w.count%gigaSubBlock == 0 {
		var buf [2]byte
		within := bitpos - w.blockBase
		binary.LittleEndian.PutUint16(buf[:], uint16(within))
		if _, err := w.offf.Write(buf[:]); err != nil {
			return err
		}
	}
	if w.count%gigaBlockLog == 0 {
		var buf [4]byte
		blockIdx := bitpos / (gigaBlockLen * 8)
		binary.LittleEndian.PutUint32(buf[:], uint32(blockIdx))
		if _, err := w.segf.Write(buf[:]); err != nil {
			return err
		}
	}
	w.bw.Delta(uint64(id) + 1)
	w.count++
	return nil
}

// Finalize flushes the bitstream and patches the header with the final
// position count.
func (w *GigaDeltaTextWriter) Finalize() error {
	if _, err := w.bw.Finish(); err != nil {
		return err
	}
	if pad := (8 - w.bw.BitsWritten()/8%8) % 8; pad != 0 {
		if _, err := w.textf.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	if err := w.segf.Flush(); err != nil {
		return err
	}
	if err := w.segff.Close(); err != nil {
		return err
	}
	if err := w.offf.Flush(); err != nil {
		return err
	}
	if err := w.offff.Close(); err != nil {
		return err
	}
	if err := patchUint64(w.textf, headerBytes+8, w.count); err != nil {
		return err
	}
	return w.textf.Close()
}

// IntTextWriter builds the Int physical layout: a 4-u32 header followed by
// a raw fixed-width u32 array, used for structure attributes.
type IntTextWriter struct {
	textf *bufio.Writer
	f     *os.File
	count uint64
}

// NewIntTextWriter creates the .text file rooted at base.
func NewIntTextWriter(base string) (*IntTextWriter, error) {
	f, err := os.Create(base + ".text")
	if err != nil {
		return nil, err
	}
	var hdr [16]byte
	copy(hdr[:6], magicInt[:])
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, err
	}
	return &IntTextWriter{textf: bufio.NewWriter(f), f: f}, nil
}

// Put appends id to the stream.
func (w *IntTextWriter) Put(id uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)
	if _, err := w.textf.Write(buf[:]); err != nil {
		return err
	}
	w.count++
	return nil
}

// Finalize flushes the array to disk.
func (w *IntTextWriter) Finalize() error {
	if err := w.textf.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}
