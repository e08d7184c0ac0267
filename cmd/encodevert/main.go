// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command encodevert encodes a vertical text stream into the lexicon, text
// and structure range files a corpus config declares.
package main

import (
	"fmt"
	"os"

	"github.com/dsnet/corpus/corpus"
	"github.com/dsnet/corpus/internal/corpconf"
	"github.com/dsnet/corpus/vertenc"
)

const version = "0.1.0"

func printUsage() {
	fmt.Println("encodevert")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  encodevert <config> [input|-]")
	fmt.Println()
	fmt.Println("If input is omitted or '-', stdin is used.")
}

func readConf(path string) (*corpconf.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return corpconf.ParseString(string(data))
}

func run(args []string) error {
	var confPath, input string
	for _, a := range args {
		switch a {
		case "-h", "--help":
			printUsage()
			return nil
		case "-V", "--version":
			fmt.Println("encodevert", version)
			return nil
		}
	}
	if len(args) == 0 {
		printUsage()
		return nil
	}
	confPath = args[0]
	input = "-"
	if len(args) > 1 {
		input = args[1]
	}

	conf, err := readConf(confPath)
	if err != nil {
		return err
	}
	pathVal, ok := conf.Value("PATH")
	if !ok {
		return fmt.Errorf("PATH not set in config")
	}
	outPath, err := corpus.RebasePath(confPath, pathVal)
	if err != nil {
		return err
	}

	enc, err := vertenc.NewEncoder(conf, outPath)
	if err != nil {
		return err
	}

	var in *os.File
	if input == "-" {
		in = os.Stdin
	} else {
		in, err = os.Open(input)
		if err != nil {
			return err
		}
		defer in.Close()
	}

	if err := enc.Encode(in); err != nil {
		return err
	}
	return enc.Finalize()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "encodevert:", err)
		os.Exit(1)
	}
}
