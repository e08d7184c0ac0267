// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsnet/corpus/internal/corpconf"
	"github.com/dsnet/corpus/revindex"
	"github.com/dsnet/corpus/text"
	"github.com/dsnet/corpus/vertenc"
)

const testConf = `PATH "./data"
ATTRIBUTE word {
  TYPE MD_MD
}
STRUCTURE doc {
  ATTRIBUTE id {
    TYPE Int
  }
}
`

const testVert = `<doc id="x">
the
cat
sat
</doc>
<doc id="y">
the
dog
</doc>
`

// buildCorpus encodes testVert under testConf into a temp directory and
// builds the word attribute's Rev index, returning the config file path.
func buildCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	confPath := filepath.Join(dir, "sample.conf")
	if err := os.WriteFile(confPath, []byte(testConf), 0o644); err != nil {
		t.Fatal(err)
	}
	dataDir := filepath.Join(dir, "data")

	block, err := corpconf.ParseString(testConf)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := vertenc.NewEncoder(block, dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Encode(strings.NewReader(testVert)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finalize(); err != nil {
		t.Fatal(err)
	}

	return confPath
}

// buildRev builds a Rev index for the Text rooted at base, picking whichever
// physical layout (Delta or Int) is actually present.
func buildRev(t *testing.T, base string) {
	t.Helper()
	var tw interface {
		text.Text
		Close() error
	}
	var err error
	if _, statErr := os.Stat(base + ".text.seg"); statErr == nil {
		tw, err = text.Open(base)
	} else {
		tw, err = text.OpenInt(base)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer tw.Close()
	if err := revindex.Build(base, tw); err != nil {
		t.Fatal(err)
	}
}

func TestOpenResolvesPathAndAttributes(t *testing.T) {
	confPath := buildCorpus(t)
	buildRev(t, filepath.Join(filepath.Dir(confPath), "data", "word"))

	c, err := Open(confPath)
	if err != nil {
		t.Fatal(err)
	}
	want, err := RebasePath(confPath, "./data")
	if err != nil {
		t.Fatal(err)
	}
	want = strings.TrimRight(want, "/") + "/"
	if c.Path != want {
		t.Errorf("Path = %q, want %q", c.Path, want)
	}

	word, err := c.OpenAttribute("word")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := word.IDRange(), uint32(4); got != want {
		t.Errorf("word.IDRange() = %d, want %d", got, want)
	}
	if id, ok := word.Str2ID("the"); !ok || word.ID2Str(id) != "the" {
		t.Errorf("Str2ID(the) round-trip failed: id=%d ok=%v", id, ok)
	}
	if got, want := word.Frq(mustID(t, word, "the")), uint64(2); got != want {
		t.Errorf("Frq(the) = %d, want %d", got, want)
	}

	if _, err := c.OpenAttribute("missing"); err == nil {
		t.Error("OpenAttribute(missing) unexpectedly succeeded")
	}
}

func TestOpenAttributeCachesHandle(t *testing.T) {
	confPath := buildCorpus(t)
	buildRev(t, filepath.Join(filepath.Dir(confPath), "data", "word"))

	c, err := Open(confPath)
	if err != nil {
		t.Fatal(err)
	}
	a1, err := c.OpenAttribute("word")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := c.OpenAttribute("word")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Error("OpenAttribute(word) returned distinct handles on repeated calls")
	}
}

func TestOpenStructAndStructAttribute(t *testing.T) {
	confPath := buildCorpus(t)
	buildRev(t, filepath.Join(filepath.Dir(confPath), "data", "doc.id"))

	c, err := Open(confPath)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.OpenStruct("doc")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.Len(), uint64(2); got != want {
		t.Errorf("doc.Len() = %d, want %d", got, want)
	}
	if got, want := s.BegAt(0), uint64(0); got != want {
		t.Errorf("doc.BegAt(0) = %d, want %d", got, want)
	}

	idAttr, err := c.OpenAttribute("doc.id")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := idAttr.IDRange(), uint32(2); got != want {
		t.Errorf("doc.id IDRange() = %d, want %d", got, want)
	}

	if _, err := c.OpenAttribute("missing.id"); err == nil {
		t.Error("OpenAttribute(missing.id) unexpectedly succeeded")
	}
	if _, err := c.OpenAttribute("doc.missing"); err == nil {
		t.Error("OpenAttribute(doc.missing) unexpectedly succeeded")
	}
}

func TestGetConfFallbacks(t *testing.T) {
	confPath := buildCorpus(t)
	c, err := Open(confPath)
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := c.GetConf("DEFAULTATTR"); !ok || got != "word" {
		t.Errorf("GetConf(DEFAULTATTR) = (%q, %v), want (word, true)", got, ok)
	}
	// No lempos_lc/lempos/lemma_lc/lemma attribute is declared, so WSATTR
	// falls back through to DEFAULTATTR.
	if got, ok := c.GetConf("WSATTR"); !ok || got != "word" {
		t.Errorf("GetConf(WSATTR) = (%q, %v), want (word, true)", got, ok)
	}
	wsbase, ok := c.GetConf("WSBASE")
	if !ok {
		t.Fatal("GetConf(WSBASE) not found")
	}
	if want := c.Path + "word-ws"; wsbase != want {
		t.Errorf("GetConf(WSBASE) = %q, want %q", wsbase, want)
	}
}

func TestResolveRegistryLiteralPaths(t *testing.T) {
	for _, name := range []string{"./foo", "/abs/foo"} {
		got, err := ResolveRegistry(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != name {
			t.Errorf("ResolveRegistry(%q) = %q, want unchanged", name, got)
		}
	}
}

func TestResolveRegistryNotFound(t *testing.T) {
	t.Setenv("MANATEE_REGISTRY", t.TempDir())
	if _, err := ResolveRegistry("does-not-exist"); err == nil {
		t.Error("ResolveRegistry(does-not-exist) unexpectedly succeeded")
	}
}

func TestResolveRegistryFindsEnvEntry(t *testing.T) {
	regDir := t.TempDir()
	confPath := filepath.Join(regDir, "mycorpus")
	if err := os.WriteFile(confPath, []byte(testConf), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MANATEE_REGISTRY", regDir)

	got, err := ResolveRegistry("mycorpus")
	if err != nil {
		t.Fatal(err)
	}
	if got != confPath {
		t.Errorf("ResolveRegistry(mycorpus) = %q, want %q", got, confPath)
	}
}

func mustID(t *testing.T, a interface {
	Str2ID(string) (uint32, bool)
}, s string) uint32 {
	t.Helper()
	id, ok := a.Str2ID(s)
	if !ok {
		t.Fatalf("Str2ID(%q) not found", s)
	}
	return id
}
