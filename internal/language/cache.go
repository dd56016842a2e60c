package language

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultDocumentCacheSize bounds the number of parsed documents kept.
const DefaultDocumentCacheSize = 1024

// DocumentCache memoizes parsed query and fragment documents keyed by their
// raw text. Cached documents are shared and must be treated as read-only.
// A nil *DocumentCache parses on every call.
type DocumentCache struct {
	docs *lru.Cache
}

// NewDocumentCache returns a cache holding at most size documents. A size of
// zero or less selects DefaultDocumentCacheSize.
func NewDocumentCache(size int) (*DocumentCache, error) {
	if size <= 0 {
		size = DefaultDocumentCacheSize
	}
	docs, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &DocumentCache{docs: docs}, nil
}

func cacheKey(kind byte, parts ...string) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{kind})
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// cacheEntry keeps the source next to the parsed document. A hit whose
// source differs is a hash collision and counts as a miss.
type cacheEntry struct {
	kind     byte
	typeName string
	text     string
	doc      any
}

func (c *DocumentCache) lookup(kind byte, typeName, text string) (key uint64, doc any, ok bool) {
	key = cacheKey(kind, typeName, text)
	cached, ok := c.docs.Get(key)
	if !ok {
		return key, nil, false
	}
	e, ok := cached.(cacheEntry)
	if !ok || e.kind != kind || e.typeName != typeName || e.text != text {
		return key, nil, false
	}
	return key, e.doc, true
}

// Query parses an executable document.
func (c *DocumentCache) Query(text string) (*QueryDocument, error) {
	if c == nil {
		return ParseQuery(text)
	}
	key, cached, ok := c.lookup('q', "", text)
	if ok {
		return cached.(*QueryDocument), nil
	}
	doc, err := ParseQuery(text)
	if err != nil {
		return nil, err
	}
	c.docs.Add(key, cacheEntry{kind: 'q', text: text, doc: doc})
	return doc, nil
}

// Fragment parses fragment text declared against typeName.
func (c *DocumentCache) Fragment(typeName, text string) (*Fragment, error) {
	if c == nil {
		return ParseFragment(typeName, text)
	}
	key, cached, ok := c.lookup('f', typeName, text)
	if ok {
		return cached.(*Fragment), nil
	}
	frag, err := ParseFragment(typeName, text)
	if err != nil {
		return nil, err
	}
	c.docs.Add(key, cacheEntry{kind: 'f', typeName: typeName, text: text, doc: frag})
	return frag, nil
}

// Len reports the number of cached documents.
func (c *DocumentCache) Len() int {
	if c == nil {
		return 0
	}
	return c.docs.Len()
}
