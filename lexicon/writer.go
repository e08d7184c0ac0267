// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package lexicon

import (
	"bufio"
	"encoding/binary"
	"os"
	"sort"
)

// Writer builds a Lexicon from a stream of values, assigning each unseen
// value the next sequential id and appending its byte offset to .lex.idx.
// Finalize sorts (string, id) pairs to produce .lex.srt.
type Writer struct {
	base string
	lex  *bufio.Writer
	idx  *bufio.Writer
	lexf *os.File
	idxf *os.File

	ids   map[string]uint32
	bytes uint32
}

// NewWriter creates the .lex and .lex.idx files rooted at base.
func NewWriter(base string) (*Writer, error) {
	lexf, err := os.Create(base + ".lex")
	if err != nil {
		return nil, err
	}
	idxf, err := os.Create(base + ".lex.idx")
	if err != nil {
		lexf.Close()
		return nil, err
	}
	return &Writer{
		base: base,
		lex:  bufio.NewWriter(lexf),
		idx:  bufio.NewWriter(idxf),
		lexf: lexf,
		idxf: idxf,
		ids:  make(map[string]uint32),
	}, nil
}

// IDFor returns the id for value, assigning and persisting a new one if this
// is the first time value has been seen.
func (w *Writer) IDFor(value string) (uint32, error) {
	if id, ok := w.ids[value]; ok {
		return id, nil
	}
	id := uint32(len(w.ids))
	w.ids[value] = id

	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], w.bytes)
	if _, err := w.idx.Write(off[:]); err != nil {
		return 0, err
	}
	if _, err := w.lex.WriteString(value); err != nil {
		return 0, err
	}
	if err := w.lex.WriteByte(0); err != nil {
		return 0, err
	}

	n := uint64(w.bytes) + uint64(len(value)) + 1
	if n > 1<<32-1 {
		return 0, Error("lexicon offset overflow")
	}
	w.bytes = uint32(n)
	return id, nil
}

// IDRange reports how many distinct values have been assigned so far.
func (w *Writer) IDRange() uint32 { return uint32(len(w.ids)) }

// Finalize flushes .lex and .lex.idx, then rereads both to produce the
// string-sorted .lex.srt index.
func (w *Writer) Finalize() error {
	if err := w.lex.Flush(); err != nil {
		return err
	}
	if err := w.idx.Flush(); err != nil {
		return err
	}
	if err := w.lexf.Close(); err != nil {
		return err
	}
	if err := w.idxf.Close(); err != nil {
		return err
	}

	lexBytes, err := os.ReadFile(w.base + ".lex")
	if err != nil {
		return err
	}
	idxBytes, err := os.ReadFile(w.base + ".lex.idx")
	if err != nil {
		return err
	}

	n := len(idxBytes) / 4
	type pair struct {
		s  string
		id uint32
	}
	pairs := make([]pair, n)
	for id := 0; id < n; id++ {
		off := binary.LittleEndian.Uint32(idxBytes[id*4 : id*4+4])
		end := int(off)
		for end < len(lexBytes) && lexBytes[end] != 0 {
			end++
		}
		pairs[id] = pair{s: string(lexBytes[off:end]), id: uint32(id)}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].s < pairs[j].s })

	srtf, err := os.Create(w.base + ".lex.srt")
	if err != nil {
		return err
	}
	defer srtf.Close()
	srt := bufio.NewWriter(srtf)
	var buf [4]byte
	for _, p := range pairs {
		binary.LittleEndian.PutUint32(buf[:], p.id)
		if _, err := srt.Write(buf[:]); err != nil {
			return err
		}
	}
	return srt.Flush()
}
