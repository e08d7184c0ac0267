// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package corpus ties a registry config, a lexicon+text+rev attribute
// family and a structure range-index family into one corpus: resolving
// a corpus name through the registry, opening attributes (including
// dotted structure-attribute names and dynamic attributes) and
// structures by name, and applying the documented GetConf fallbacks.
package corpus

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dsnet/corpus/attribute"
	"github.com/dsnet/corpus/internal/corpconf"
	"github.com/dsnet/corpus/lexicon"
	"github.com/dsnet/corpus/revindex"
	"github.com/dsnet/corpus/structure"
	"github.com/dsnet/corpus/text"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "corpus: " + string(e) }

const handleCacheSize = 64

// Corpus is an opened registry configuration plus cached handles to the
// attributes and structures it names.
type Corpus struct {
	Path string
	Name string
	Conf *corpconf.Block

	attrs   *lru.Cache[string, attribute.Attr]
	structs *lru.Cache[string, structure.Struct]
}

// RebasePath rebases path against the canonicalized directory of
// confFilename when path begins with ".". Absolute and registry-rooted
// paths are returned unchanged. This is the one routine both Open (for
// PATH) and GetConf (for WSBASE) funnel through.
func RebasePath(confFilename, path string) (string, error) {
	if !strings.HasPrefix(path, ".") {
		return path, nil
	}
	abs, err := filepath.Abs(confFilename)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(real), path), nil
}

// RebasePath rebases path against this corpus's config file directory.
func (c *Corpus) RebasePath(path string) (string, error) {
	return RebasePath(c.Name, path)
}

// ResolveRegistry resolves a bare corpus name to a registry config file
// path. Names already rooted at "." or "/" are returned unchanged.
// Otherwise each colon-separated directory in $MANATEE_REGISTRY, then
// /corpora/registry/, is searched in order for a file named name.
func ResolveRegistry(name string) (string, error) {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "/") {
		return name, nil
	}
	var dirs []string
	if v := os.Getenv("MANATEE_REGISTRY"); v != "" {
		dirs = append(dirs, strings.Split(v, ":")...)
	}
	dirs = append(dirs, "/corpora/registry")
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", Error("corpus not found in registry: " + name)
}

// OpenNamed resolves name through the registry and opens its config.
func OpenNamed(name string) (*Corpus, error) {
	path, err := ResolveRegistry(name)
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open parses the registry config at confFilename and resolves its PATH.
func Open(confFilename string) (*Corpus, error) {
	data, err := os.ReadFile(confFilename)
	if err != nil {
		return nil, err
	}
	conf, err := corpconf.ParseString(string(data))
	if err != nil {
		return nil, err
	}
	pathVal, ok := conf.Value("PATH")
	if !ok {
		return nil, Error("config missing PATH")
	}
	path, err := RebasePath(confFilename, pathVal)
	if err != nil {
		return nil, err
	}
	path = strings.TrimRight(path, "/") + "/"

	attrs, err := lru.New[string, attribute.Attr](handleCacheSize)
	if err != nil {
		return nil, err
	}
	structs, err := lru.New[string, structure.Struct](handleCacheSize)
	if err != nil {
		return nil, err
	}
	return &Corpus{Path: path, Name: confFilename, Conf: conf, attrs: attrs, structs: structs}, nil
}

func (c *Corpus) openText(path, typeCode string) (text.Text, error) {
	switch typeCode {
	case "MD_MD", "FD_FD", "FD_MD":
		return text.Open(path)
	case "MD_MGD", "FD_FGD", "FD_MGD", "NoMem":
		return text.OpenGigaDelta(path)
	case "Int", "MD_MI":
		return text.OpenInt(path)
	default:
		return nil, Error("unsupported attribute TYPE: " + typeCode)
	}
}

// OpenAttribute opens the positional or dynamic attribute named by name,
// which may be a dotted "struct.attr" structure-attribute name. Results
// are cached by name in an LRU of handleCacheSize entries; a name evicted
// from it is opened afresh on its next call.
func (c *Corpus) OpenAttribute(name string) (attribute.Attr, error) {
	if a, ok := c.attrs.Get(name); ok {
		return a, nil
	}

	if sname, aname, ok := strings.Cut(name, "."); ok {
		s, ok := c.Conf.Structure(sname)
		if !ok {
			return nil, Error("structure not found: " + sname)
		}
		if _, ok := s.Attribute(aname); !ok {
			return nil, Error("structure attribute not found: " + name)
		}
		base := c.Path + sname + "." + aname
		lex, err := lexicon.Open(base)
		if err != nil {
			return nil, err
		}
		txt, err := text.OpenInt(base)
		if err != nil {
			lex.Close()
			return nil, err
		}
		rev, err := revindex.Open(base)
		if err != nil {
			lex.Close()
			txt.Close()
			return nil, err
		}
		a := &attribute.Std{Path: base, Name: name, Lex: lex, Txt: txt, Rev: rev}
		c.attrs.Add(name, a)
		return a, nil
	}

	aconf, ok := c.Conf.Attribute(name)
	if !ok {
		return nil, Error("attribute not found: " + name)
	}
	base := c.Path + name

	if _, ok := aconf.Value("DYNAMIC"); ok {
		fromName, ok := aconf.Value("FROMATTR")
		if !ok {
			return nil, Error("dynamic attribute missing FROMATTR: " + name)
		}
		fromAttr, err := c.OpenAttribute(fromName)
		if err != nil {
			return nil, err
		}
		dyn, err := attribute.OpenDynamic(base, name, fromAttr)
		if err != nil {
			return nil, err
		}
		c.attrs.Add(name, dyn)
		return dyn, nil
	}

	typeCode, ok := aconf.Value("TYPE")
	if !ok {
		typeCode = "MD_MD"
	}
	lex, err := lexicon.Open(base)
	if err != nil {
		return nil, err
	}
	txt, err := c.openText(base, typeCode)
	if err != nil {
		lex.Close()
		return nil, err
	}
	rev, err := revindex.Open(base)
	if err != nil {
		lex.Close()
		if c, ok := txt.(interface{ Close() error }); ok {
			c.Close()
		}
		return nil, err
	}
	std := &attribute.Std{Path: base, Name: name, Lex: lex, Txt: txt, Rev: rev}
	c.attrs.Add(name, std)
	return std, nil
}

// OpenStruct opens the structure named by name. TYPE file64/map64 selects
// the 64-bit range width. Results are cached by name in an LRU of
// handleCacheSize entries; a name evicted from it is opened afresh on its
// next call.
func (c *Corpus) OpenStruct(name string) (structure.Struct, error) {
	if s, ok := c.structs.Get(name); ok {
		return s, nil
	}
	sconf, ok := c.Conf.Structure(name)
	if !ok {
		return nil, Error("structure not found: " + name)
	}
	wide64 := false
	if t, ok := sconf.Value("TYPE"); ok && (t == "file64" || t == "map64") {
		wide64 = true
	}
	s, err := structure.Open(c.Path+name, wide64)
	if err != nil {
		return nil, err
	}
	c.structs.Add(name, s)
	return s, nil
}

// OpenStructText opens the {structure}.{attr} base path as an Int Text,
// the raw structure-attribute layout written alongside a structure's
// .rng file.
func (c *Corpus) OpenStructText(s, a string) (*text.Int, error) {
	return text.OpenInt(c.Path + s + "." + a)
}

// GetConf returns the configured value for name, or one of the documented
// fallbacks (WSATTR, DEFAULTATTR, WSBASE) when the config is silent.
func (c *Corpus) GetConf(name string) (string, bool) {
	if v, ok := c.Conf.Value(name); ok {
		return v, true
	}
	switch name {
	case "WSATTR":
		for _, a := range []string{"lempos_lc", "lempos", "lemma_lc", "lemma"} {
			if _, ok := c.Conf.Attribute(a); ok {
				return a, true
			}
		}
		return c.GetConf("DEFAULTATTR")
	case "DEFAULTATTR":
		return "word", true
	case "WSBASE":
		wsattr, ok := c.GetConf("WSATTR")
		if !ok {
			return "", false
		}
		val := c.Path + wsattr + "-ws"
		rebased, err := c.RebasePath(val)
		if err != nil {
			return "", false
		}
		return rebased, true
	default:
		return "", false
	}
}
