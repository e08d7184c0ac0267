// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command mkrev builds a Rev posting-list index for one attribute from its
// already-encoded Text stream.
package main

import (
	"fmt"
	"os"

	"github.com/dsnet/corpus/revindex"
	"github.com/dsnet/corpus/text"
)

func printUsage() {
	fmt.Println("mkrev")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mkrev <base>")
	fmt.Println()
	fmt.Println("base is the attribute base path without extension (e.g. /path/word);")
	fmt.Println("its .rev/.rev.idx0/.rev.idx1 files are written alongside it.")
}

// openText picks the physical Text layout present at base, the same
// file-existence probe order the original encoder's rev-building tool uses:
// GigaDelta (.text.off present), then Delta (.text.seg present), then Int.
func openText(base string) (text.Text, error) {
	if _, err := os.Stat(base + ".text.off"); err == nil {
		return text.OpenGigaDelta(base)
	}
	if _, err := os.Stat(base + ".text.seg"); err == nil {
		return text.Open(base)
	}
	return text.OpenInt(base)
}

func run(args []string) error {
	if len(args) != 1 {
		printUsage()
		return nil
	}
	base := args[0]

	txt, err := openText(base)
	if err != nil {
		return err
	}
	if c, ok := txt.(interface{ Close() error }); ok {
		defer c.Close()
	}

	return revindex.Build(base, txt)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mkrev:", err)
		os.Exit(1)
	}
}
