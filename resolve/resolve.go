/*
Copyright © 2026 esmap contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package resolve translates module specifiers into concrete load targets
// using a statically declared import map.
//
// The resolver is pure: it performs no filesystem walking, no version
// comparison, and no I/O. Every outcome is a value; an unmapped specifier is
// an Unresolved result, never an error. A Resolver is immutable after
// construction and safe for concurrent use from any number of goroutines.
package resolve

import (
	"sort"
	"strings"

	"github.com/daKmoR/esmap/importmap"
)

// Resolution is the outcome of resolving a single specifier.
type Resolution struct {
	// Specifier is the specifier as requested.
	Specifier string `json:"specifier"`

	// Path is the concrete target to load. Empty when Resolved is false.
	Path string `json:"path,omitempty"`

	// Key is the import map key that produced the match. Empty for
	// passthrough specifiers (relative, absolute, or URL) and for
	// unresolved specifiers.
	Key string `json:"key,omitempty"`

	// Scope is the scope key that supplied the match, if any.
	Scope string `json:"scope,omitempty"`

	// Resolved reports whether a target was produced. When false, the
	// caller decides the fallback policy: treat the specifier as external,
	// fail the build, or try a secondary resolution strategy.
	Resolved bool `json:"resolved"`
}

// Unresolved constructs the negative result for a specifier.
func Unresolved(specifier string) Resolution {
	return Resolution{Specifier: specifier}
}

// prefixEntry is a precomputed prefix key (trailing slash) and its target.
type prefixEntry struct {
	key    string
	target string
}

// entrySet holds the exact and prefix entries of one imports block,
// with prefixes sorted longest-first so the most specific mapping wins.
type entrySet struct {
	exact    map[string]string
	prefixes []prefixEntry
}

// scopedSet is an entrySet that applies under a referrer scope prefix.
type scopedSet struct {
	scope   string
	entries entrySet
}

// Resolver resolves specifiers against a snapshot of an import map.
type Resolver struct {
	imports entrySet
	scopes  []scopedSet
}

// New builds a Resolver from an import map. The map is validated before any
// resolution can occur; a malformed map is rejected here, once, rather than
// surfacing as unreliable resolutions later. The resolver keeps its own
// snapshot, so later mutation of the input map does not affect it.
func New(im *importmap.ImportMap) (*Resolver, error) {
	if err := im.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{imports: newEntrySet(im.Imports)}

	for scope, imports := range im.Scopes {
		r.scopes = append(r.scopes, scopedSet{scope, newEntrySet(imports)})
	}
	// Longest scope first so the most specific scope wins.
	sort.Slice(r.scopes, func(i, j int) bool {
		return len(r.scopes[i].scope) > len(r.scopes[j].scope)
	})

	return r, nil
}

func newEntrySet(entries map[string]string) entrySet {
	set := entrySet{exact: make(map[string]string, len(entries))}
	for key, target := range entries {
		if strings.HasSuffix(key, "/") {
			set.prefixes = append(set.prefixes, prefixEntry{key, target})
		} else {
			set.exact[key] = target
		}
	}
	// Longest prefix first. Map keys are unique, so equal lengths cannot
	// produce ambiguous matches for any one specifier.
	sort.Slice(set.prefixes, func(i, j int) bool {
		return len(set.prefixes[i].key) > len(set.prefixes[j].key)
	})
	return set
}

// Resolve translates a specifier using the map's top-level imports.
//
// Relative ("./x", "../x"), absolute ("/x"), and URL ("https://...")
// specifiers bypass the map and resolve to themselves unchanged: the map
// only governs bare specifiers. Resolved targets are used verbatim with no
// extension elision; a target lacking ".js" resolves successfully and fails
// later at load time.
func (r *Resolver) Resolve(specifier string) Resolution {
	if !IsBare(specifier) {
		return Resolution{Specifier: specifier, Path: specifier, Resolved: true}
	}
	return r.imports.resolve(specifier)
}

// ResolveFrom translates a specifier on behalf of a referrer module.
// The longest scope key that prefixes the referrer applies first; on a scope
// miss, resolution falls back to the top-level imports. An empty referrer is
// equivalent to Resolve.
func (r *Resolver) ResolveFrom(specifier, referrer string) Resolution {
	if !IsBare(specifier) {
		return Resolution{Specifier: specifier, Path: specifier, Resolved: true}
	}

	for _, s := range r.scopes {
		if !strings.HasPrefix(referrer, s.scope) {
			continue
		}
		if res := s.entries.resolve(specifier); res.Resolved {
			res.Scope = s.scope
			return res
		}
	}

	return r.imports.resolve(specifier)
}

// ResolveAll resolves a batch of specifiers against the top-level imports,
// preserving input order.
func (r *Resolver) ResolveAll(specifiers []string) []Resolution {
	results := make([]Resolution, len(specifiers))
	for i, spec := range specifiers {
		results[i] = r.Resolve(spec)
	}
	return results
}

func (set entrySet) resolve(specifier string) Resolution {
	// Exact match takes precedence over any prefix key. A specifier equal
	// to a prefix key (e.g. "lit-html/") matches here as well, resolving to
	// the bare prefix target.
	if target, ok := set.exact[specifier]; ok {
		return Resolution{Specifier: specifier, Path: target, Key: specifier, Resolved: true}
	}
	for _, p := range set.prefixes {
		if specifier == p.key {
			return Resolution{Specifier: specifier, Path: p.target, Key: p.key, Resolved: true}
		}
		if strings.HasPrefix(specifier, p.key) {
			return Resolution{
				Specifier: specifier,
				Path:      p.target + strings.TrimPrefix(specifier, p.key),
				Key:       p.key,
				Resolved:  true,
			}
		}
	}
	return Unresolved(specifier)
}

// IsBare reports whether the specifier is a bare module specifier, i.e. one
// that names a package rather than a relative or absolute path or a URL.
// Only bare specifiers are subject to import map resolution.
func IsBare(specifier string) bool {
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	// URL schemes
	if strings.Contains(specifier, "://") || strings.HasPrefix(specifier, "data:") {
		return false
	}
	return true
}
