// Package overlay produces translated display views of canonical analysis
// data. Results are memoized by (language, content fingerprint); canonical
// data is never mutated, so a content change or language switch simply
// keys a fresh entry and leaves the old one to age out.
package overlay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ellery/rxcare/internal/gateway"
)

// Translator is the gateway call the cache depends on.
type Translator interface {
	Translate(ctx context.Context, analysis *gateway.Analysis, summary *gateway.Summary, lang string) (*gateway.Analysis, *gateway.Summary, error)
}

// View is what gets rendered: translated content when available, canonical
// content plus a warning when translation failed or is unavailable.
type View struct {
	Analysis   *gateway.Analysis
	Summary    *gateway.Summary
	Translated bool
	Warning    string
}

// DefaultCapacity bounds the cache; old entries are evicted LRU.
const DefaultCapacity = 20

// DefaultSourceLanguage is the language canonical data arrives in.
const DefaultSourceLanguage = "en"

type entryState int

const (
	statePending entryState = iota
	stateReady
	stateFailed
)

// entry is immutable once resolved: done is closed exactly once and the
// outcome fields are never rewritten afterward.
type entry struct {
	state    entryState
	done     chan struct{}
	analysis *gateway.Analysis
	summary  *gateway.Summary
	errMsg   string
}

// Cache memoizes translated views.
type Cache struct {
	translator Translator
	sourceLang string
	capacity   int

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // LRU, most recent last
}

// Opts holds parameters for creating a Cache.
type Opts struct {
	Translator     Translator
	SourceLanguage string // defaults to DefaultSourceLanguage
	Capacity       int    // defaults to DefaultCapacity
}

// New creates a Cache.
func New(opts Opts) (*Cache, error) {
	if opts.Translator == nil {
		return nil, fmt.Errorf("overlay: translator is required")
	}
	lang := opts.SourceLanguage
	if lang == "" {
		lang = DefaultSourceLanguage
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		translator: opts.Translator,
		sourceLang: lang,
		capacity:   capacity,
		entries:    make(map[string]*entry),
	}, nil
}

// Fingerprint derives a key identifying one version of a session's
// canonical analysis+summary pair.
func Fingerprint(analysis *gateway.Analysis, summary *gateway.Summary) string {
	h := sha256.New()
	if analysis != nil {
		data, _ := json.Marshal(analysis)
		h.Write(data)
	}
	h.Write([]byte{0})
	if summary != nil {
		data, _ := json.Marshal(summary)
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// View returns the display view of the given canonical content in lang.
// The source language short-circuits to canonical data with no cache
// lookup. Otherwise at most one translation request is in flight per
// (language, fingerprint) key; late callers attach to the same outcome.
// A failed translation yields canonical content plus a warning and is not
// retried until the content or language changes.
func (c *Cache) View(ctx context.Context, analysis *gateway.Analysis, summary *gateway.Summary, lang string) *View {
	canonical := &View{Analysis: analysis, Summary: summary}
	if analysis == nil && summary == nil {
		return canonical
	}
	if lang == "" || lang == c.sourceLang {
		return canonical
	}

	key := lang + "|" + Fingerprint(analysis, summary)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{state: statePending, done: make(chan struct{})}
		c.insert(key, e)
		c.mu.Unlock()

		// This caller owns the request; peers wait on e.done. The
		// request is detached from the caller's context so a disconnect
		// mid-flight cannot store a cancellation as a permanent failure.
		ta, ts, err := c.translator.Translate(context.WithoutCancel(ctx), analysis, summary, lang)

		c.mu.Lock()
		if err != nil {
			e.state = stateFailed
			e.errMsg = err.Error()
		} else {
			e.state = stateReady
			e.analysis = ta
			e.summary = ts
		}
		close(e.done)
		c.mu.Unlock()

		return c.render(e, canonical)
	}
	c.touch(key)
	c.mu.Unlock()

	select {
	case <-e.done:
		return c.render(e, canonical)
	case <-ctx.Done():
		// The in-flight request keeps running and will be cached under
		// its key; this caller just falls back for now.
		canonical.Warning = "translation pending"
		return canonical
	}
}

// render converts a resolved entry into a View.
func (c *Cache) render(e *entry, canonical *View) *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.state {
	case stateReady:
		return &View{Analysis: e.analysis, Summary: e.summary, Translated: true}
	case stateFailed:
		canonical.Warning = "translation unavailable: " + e.errMsg
		return canonical
	default:
		canonical.Warning = "translation pending"
		return canonical
	}
}

// insert adds an entry, evicting the least-recently-used resolved entry
// when over capacity. Pending entries are never evicted.
func (c *Cache) insert(key string, e *entry) {
	c.entries[key] = e
	c.order = append(c.order, key)

	for len(c.entries) > c.capacity {
		evicted := false
		for i, k := range c.order {
			if c.entries[k].state == statePending {
				continue
			}
			delete(c.entries, k)
			c.order = append(c.order[:i], c.order[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			break
		}
	}
}

// touch moves a key to the most-recently-used position.
func (c *Cache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether a (language, fingerprint) entry exists.
func (c *Cache) Contains(lang, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[lang+"|"+fingerprint]
	return ok
}
