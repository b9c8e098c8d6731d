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
package resolve_test

import (
	"sync"
	"testing"

	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/resolve"
)

func newResolver(t *testing.T, imports map[string]string) *resolve.Resolver {
	t.Helper()
	r, err := resolve.New(&importmap.ImportMap{Imports: imports})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	r := newResolver(t, map[string]string{
		"lit-html":    "./node_modules/lit-html/lit-html.js",
		"lit-html/":   "./node_modules/lit-html/",
		"graphql-tag": "./node_modules/graphql-tag/src/index.js",
	})

	tests := []struct {
		name      string
		specifier string
		wantPath  string
		resolved  bool
	}{
		{"exact key", "lit-html", "./node_modules/lit-html/lit-html.js", true},
		{"prefix key with remainder", "lit-html/directives/repeat.js", "./node_modules/lit-html/directives/repeat.js", true},
		{"prefix key without remainder", "lit-html/", "./node_modules/lit-html/", true},
		{"unmapped specifier", "graphql", "", false},
		{"relative specifier passes through", "./x.js", "./x.js", true},
		{"parent-relative specifier passes through", "../shared/x.js", "../shared/x.js", true},
		{"absolute specifier passes through", "/assets/x.js", "/assets/x.js", true},
		{"url specifier passes through", "https://cdn.example.com/lit.js", "https://cdn.example.com/lit.js", true},
		// No extension elision: the target is used verbatim even when a
		// required extension was omitted; failure belongs to load time.
		{"deep path without extension", "lit-html/directives/repeat", "./node_modules/lit-html/directives/repeat", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.specifier)
			if res.Resolved != tt.resolved {
				t.Fatalf("Resolve(%q).Resolved = %v, want %v", tt.specifier, res.Resolved, tt.resolved)
			}
			if res.Path != tt.wantPath {
				t.Errorf("Resolve(%q).Path = %q, want %q", tt.specifier, res.Path, tt.wantPath)
			}
			if res.Specifier != tt.specifier {
				t.Errorf("Resolve(%q).Specifier = %q", tt.specifier, res.Specifier)
			}
		})
	}
}

func TestLongestPrefixWins(t *testing.T) {
	r := newResolver(t, map[string]string{
		"a/":   "X/",
		"a/b/": "Y/",
	})

	res := r.Resolve("a/b/c")
	if !res.Resolved {
		t.Fatal("Resolve(a/b/c) should resolve")
	}
	if res.Path != "Y/c" {
		t.Errorf("Resolve(a/b/c).Path = %q, want %q (most specific mapping wins)", res.Path, "Y/c")
	}
	if res.Key != "a/b/" {
		t.Errorf("Resolve(a/b/c).Key = %q, want %q", res.Key, "a/b/")
	}

	if res := r.Resolve("a/z"); res.Path != "X/z" {
		t.Errorf("Resolve(a/z).Path = %q, want %q", res.Path, "X/z")
	}
}

func TestExactBeatsPrefix(t *testing.T) {
	r := newResolver(t, map[string]string{
		"lit-html/lit-html.js": "/patched/lit-html.js",
		"lit-html/":            "/node_modules/lit-html/",
	})

	res := r.Resolve("lit-html/lit-html.js")
	if res.Path != "/patched/lit-html.js" {
		t.Errorf("exact key should take precedence over prefix, got %q", res.Path)
	}
}

func TestResolveFrom(t *testing.T) {
	im := &importmap.ImportMap{
		Imports: map[string]string{
			"lit-html": "/node_modules/lit-html/lit-html.js",
		},
		Scopes: map[string]map[string]string{
			"/node_modules/lit-element/": {
				"lit-html": "/node_modules/lit-element/node_modules/lit-html/lit-html.js",
			},
		},
	}

	r, err := resolve.New(im)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name      string
		specifier string
		referrer  string
		wantPath  string
		wantScope string
	}{
		{"scoped referrer", "lit-html", "/node_modules/lit-element/lit-element.js", "/node_modules/lit-element/node_modules/lit-html/lit-html.js", "/node_modules/lit-element/"},
		{"unscoped referrer", "lit-html", "/src/main.js", "/node_modules/lit-html/lit-html.js", ""},
		{"empty referrer", "lit-html", "", "/node_modules/lit-html/lit-html.js", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ResolveFrom(tt.specifier, tt.referrer)
			if !res.Resolved {
				t.Fatalf("ResolveFrom(%q, %q) should resolve", tt.specifier, tt.referrer)
			}
			if res.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", res.Path, tt.wantPath)
			}
			if res.Scope != tt.wantScope {
				t.Errorf("Scope = %q, want %q", res.Scope, tt.wantScope)
			}
		})
	}
}

func TestScopeMissFallsBack(t *testing.T) {
	im := &importmap.ImportMap{
		Imports: map[string]string{
			"graphql": "/node_modules/graphql/index.mjs",
		},
		Scopes: map[string]map[string]string{
			"/node_modules/lit-element/": {
				"lit-html": "/node_modules/lit-element/node_modules/lit-html/lit-html.js",
			},
		},
	}

	r, err := resolve.New(im)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := r.ResolveFrom("graphql", "/node_modules/lit-element/lit-element.js")
	if !res.Resolved || res.Path != "/node_modules/graphql/index.mjs" {
		t.Errorf("scope miss should fall back to top-level imports, got %+v", res)
	}
}

func TestNewRejectsMalformedMap(t *testing.T) {
	_, err := resolve.New(&importmap.ImportMap{
		Imports: map[string]string{
			"lit-html/": "/node_modules/lit-html/lit-html.js",
		},
	})
	if err == nil {
		t.Fatal("New should reject a prefix key with a file target")
	}
	if !importmap.IsMalformed(err) {
		t.Errorf("New error should be a malformed-map error, got: %v", err)
	}

	if _, err := resolve.New(nil); err == nil {
		t.Error("New should reject a nil map")
	}
}

func TestResolveAll(t *testing.T) {
	r := newResolver(t, map[string]string{
		"lit-html": "./node_modules/lit-html/lit-html.js",
	})

	results := r.ResolveAll([]string{"lit-html", "graphql"})
	if len(results) != 2 {
		t.Fatalf("ResolveAll returned %d results, want 2", len(results))
	}
	if !results[0].Resolved || results[1].Resolved {
		t.Errorf("ResolveAll order not preserved: %+v", results)
	}
}

func TestConcurrentResolve(t *testing.T) {
	r := newResolver(t, map[string]string{
		"lit-html":  "./node_modules/lit-html/lit-html.js",
		"lit-html/": "./node_modules/lit-html/",
	})

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			for range 100 {
				if res := r.Resolve("lit-html/directives/repeat.js"); res.Path != "./node_modules/lit-html/directives/repeat.js" {
					t.Errorf("concurrent Resolve returned %q", res.Path)
				}
			}
		})
	}
	wg.Wait()
}

func TestIsBare(t *testing.T) {
	tests := []struct {
		specifier string
		want      bool
	}{
		{"lit-html", true},
		{"@scope/pkg/module.js", true},
		{"./x.js", false},
		{"../x.js", false},
		{"/x.js", false},
		{"https://cdn.example.com/x.js", false},
		{"data:text/javascript,export{}", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := resolve.IsBare(tt.specifier); got != tt.want {
			t.Errorf("IsBare(%q) = %v, want %v", tt.specifier, got, tt.want)
		}
	}
}
