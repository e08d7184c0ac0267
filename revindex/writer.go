// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package revindex

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/dsnet/corpus/bitio"
	"github.com/dsnet/corpus/text"
)

type idIter interface {
	Next() (uint32, bool)
}

func collectPositions(txt text.Text) ([][]uint32, error) {
	size := txt.Size()

	var it idIter
	if di, ok := txt.PosAt(0); ok {
		it = di
	} else if ii, ok := txt.StructAt(0); ok {
		it = ii
	} else {
		return nil, Error("text layout supports neither positional nor structure decode")
	}

	var positions [][]uint32
	for pos := uint64(0); pos < size; pos++ {
		id, ok := it.Next()
		if !ok {
			return nil, Error("text stream ended before reaching its reported size")
		}
		for uint64(len(positions)) <= uint64(id) {
			positions = append(positions, nil)
		}
		positions[id] = append(positions[id], uint32(pos))
	}
	return positions, nil
}

// Build constructs a Rev index rooted at base from every position in txt,
// using the dense (64-id grouped) physical layout. This is the default
// layout produced by this module's posting-list builder.
func Build(base string, txt text.Text) error {
	positions, err := collectPositions(txt)
	if err != nil {
		return err
	}
	return writeDense(base, positions)
}

// BuildSparse constructs a Rev index rooted at base using the sparse
// (per-id absolute offset and count) physical layout.
func BuildSparse(base string, txt text.Text) error {
	positions, err := collectPositions(txt)
	if err != nil {
		return err
	}
	return writeSparse(base, positions)
}

func writePostingList(bw *bitio.Writer, poslist []uint32) error {
	var last int64 = -1
	for _, p := range poslist {
		gap := int64(p) - last
		if gap <= 0 {
			return Error("positions must be strictly increasing")
		}
		bw.Delta(uint64(gap))
		last = int64(p)
	}
	return nil
}

func writeSparse(base string, positions [][]uint32) error {
	revf, err := os.Create(base + ".rev")
	if err != nil {
		return err
	}
	if _, err := revf.Write(magicSparse[:]); err != nil {
		revf.Close()
		return err
	}

	hbw := bitio.NewWriter(revf)
	hbw.Delta(2)
	if _, err := hbw.Finish(); err != nil {
		revf.Close()
		return err
	}
	headerEnd, err := revf.Seek(0, io.SeekCurrent)
	if err != nil {
		revf.Close()
		return err
	}

	bufw := bufio.NewWriter(revf)
	bw := bitio.NewWriter(bufw)

	idx := make([]uint32, len(positions))
	var writeErr error
	for id, poslist := range positions {
		bw.ByteAlign()
		byteOff := uint64(headerEnd) + bw.BitsWritten()/8
		if byteOff > 1<<32-1 {
			writeErr = Error("rev offset overflow")
			break
		}
		idx[id] = uint32(byteOff)
		if err := writePostingList(bw, poslist); err != nil {
			writeErr = err
			break
		}
	}
	if _, err := bw.Finish(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		revf.Close()
		return writeErr
	}
	if pad := (8 - (uint64(headerEnd)+bw.BitsWritten()/8)%8) % 8; pad != 0 {
		if _, err := revf.Write(make([]byte, pad)); err != nil {
			revf.Close()
			return err
		}
	}
	if err := revf.Close(); err != nil {
		return err
	}

	idxf, err := os.Create(base + ".rev.idx")
	if err != nil {
		return err
	}
	idxw := bufio.NewWriter(idxf)
	var buf [4]byte
	for _, off := range idx {
		binary.LittleEndian.PutUint32(buf[:], off)
		if _, err := idxw.Write(buf[:]); err != nil {
			idxf.Close()
			return err
		}
	}
	if err := idxw.Flush(); err != nil {
		idxf.Close()
		return err
	}
	if err := idxf.Close(); err != nil {
		return err
	}

	cntf, err := os.Create(base + ".rev.cnt")
	if err != nil {
		return err
	}
	cntw := bufio.NewWriter(cntf)
	for _, poslist := range positions {
		binary.LittleEndian.PutUint32(buf[:], uint32(len(poslist)))
		if _, err := cntw.Write(buf[:]); err != nil {
			cntf.Close()
			return err
		}
	}
	if err := cntw.Flush(); err != nil {
		cntf.Close()
		return err
	}
	return cntf.Close()
}

func writeDense(base string, positions [][]uint32) error {
	revf, err := os.Create(base + ".rev")
	if err != nil {
		return err
	}
	if _, err := revf.Write(magicDense[:]); err != nil {
		revf.Close()
		return err
	}
	dataStart, err := revf.Seek(0, io.SeekCurrent)
	if err != nil {
		revf.Close()
		return err
	}

	bufw := bufio.NewWriter(revf)
	bw := bitio.NewWriter(bufw)

	byteOffsets := make([]uint32, len(positions))
	var writeErr error
	for id, poslist := range positions {
		bw.ByteAlign()
		byteOff := uint64(dataStart) + bw.BitsWritten()/8
		if byteOff > 1<<32-1 {
			writeErr = Error("rev dense offset overflow")
			break
		}
		byteOffsets[id] = uint32(byteOff)
		if err := writePostingList(bw, poslist); err != nil {
			writeErr = err
			break
		}
	}
	if _, err := bw.Finish(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		revf.Close()
		return writeErr
	}
	if pad := (8 - (uint64(dataStart)+bw.BitsWritten()/8)%8) % 8; pad != 0 {
		if _, err := revf.Write(make([]byte, pad)); err != nil {
			revf.Close()
			return err
		}
	}
	if err := revf.Close(); err != nil {
		return err
	}

	idx1f, err := os.Create(base + ".rev.idx1")
	if err != nil {
		return err
	}
	idx1buf := bufio.NewWriter(idx1f)
	bw1 := bitio.NewWriter(idx1buf)

	var idx0 []uint32
	for blockStart := 0; blockStart < len(byteOffsets); blockStart += denseBlockSize {
		bw1.ByteAlign()
		idx0 = append(idx0, uint32(bw1.BitsWritten()/8))

		var lastOff uint32
		end := blockStart + denseBlockSize
		if end > len(byteOffsets) {
			end = len(byteOffsets)
		}
		for i := blockStart; i < end; i++ {
			off := byteOffsets[i]
			delta := off - lastOff
			if delta == 0 {
				idx1f.Close()
				return Error("invalid zero delta in rev dense")
			}
			bw1.Delta(uint64(delta))
			bw1.Gamma(uint64(len(positions[i])) + 1)
			lastOff = off
		}
		bw1.Delta(1)
		bw1.Gamma(1)
	}
	if _, err := bw1.Finish(); err != nil {
		idx1f.Close()
		return err
	}
	idx1End, err := idx1f.Seek(0, io.SeekCurrent)
	if err != nil {
		idx1f.Close()
		return err
	}
	if idx1End > 1<<32-1 {
		idx1f.Close()
		return Error("rev dense idx1 overflow")
	}
	idx0 = append(idx0, uint32(idx1End))
	if pad := (8 - idx1End%8) % 8; pad != 0 {
		if _, err := idx1f.Write(make([]byte, pad)); err != nil {
			idx1f.Close()
			return err
		}
	}
	if err := idx1f.Close(); err != nil {
		return err
	}

	idx0f, err := os.Create(base + ".rev.idx0")
	if err != nil {
		return err
	}
	idx0w := bufio.NewWriter(idx0f)
	var buf [4]byte
	for _, off := range idx0 {
		binary.LittleEndian.PutUint32(buf[:], off)
		if _, err := idx0w.Write(buf[:]); err != nil {
			idx0f.Close()
			return err
		}
	}
	if err := idx0w.Flush(); err != nil {
		idx0f.Close()
		return err
	}
	return idx0f.Close()
}
