package tts

import (
	"strings"
	"sync"

	"node.town/tandem/langs"
)

// Directory resolves the voice to speak a language with. Configured
// overrides win over voices learned from the provider, and the default
// voice catches everything else.
type Directory struct {
	mu        sync.RWMutex
	overrides map[string]string
	learned   map[string]string
	fallback  string
}

func NewDirectory(fallback string, overrides map[string]string) *Directory {
	d := &Directory{
		overrides: make(map[string]string, len(overrides)),
		learned:   make(map[string]string),
		fallback:  fallback,
	}
	for k, v := range overrides {
		d.overrides[normalize(k)] = v
	}
	return d
}

// Learn records voices discovered from the provider, keyed by language or
// locale. Earlier entries are kept.
func (d *Directory) Learn(voices map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range voices {
		k = normalize(k)
		if _, ok := d.learned[k]; !ok {
			d.learned[k] = v
		}
	}
}

// ResolveVoice tries the exact language or locale, then its base
// language, then the default voice.
func (d *Directory) ResolveVoice(lang string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := []string{normalize(lang), langs.Base(lang)}
	for _, table := range []map[string]string{d.overrides, d.learned} {
		for _, k := range keys {
			if v, ok := table[k]; ok && v != "" {
				return v
			}
		}
	}
	return d.fallback
}

func (d *Directory) Default() string {
	return d.fallback
}

func normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}
