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
package trace

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/resolve"
	"github.com/daKmoR/esmap/scan"
)

// ModuleGraph represents the module dependency graph reached from a set of
// entry points, with every bare specifier resolved through the import map.
type ModuleGraph struct {
	// Entrypoints are the starting modules (from HTML scripts or explicit entry)
	Entrypoints []string

	// Modules maps module file paths to their parsed information
	Modules map[string]*Module

	// Resolutions maps each bare specifier encountered to its resolution.
	Resolutions map[string]resolve.Resolution

	// Issues collects unresolved bare specifiers with their source location.
	Issues []Issue

	// Errors collects non-fatal errors encountered during tracing, such as
	// resolved targets that do not exist on disk (load-time failures).
	Errors []error
}

// Module represents a parsed module in the graph.
type Module struct {
	Path    string         // Path to the module file
	Imports []ModuleImport // All imports found in the module
	Traced  bool           // Whether this module has been fully traced
}

// Issue reports a bare specifier with no applicable import map entry.
// It is a reported condition, not a failure: the caller's policy decides
// whether to treat it as external, warn, or error.
type Issue struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Specifier string `json:"specifier"`
}

// Tracer builds module graphs from HTML and JavaScript entrypoints,
// resolving bare specifiers through an import map.
type Tracer struct {
	fs       fs.FileSystem
	rootDir  string
	resolver *resolve.Resolver

	// moduleCache caches parsed modules by path (thread-safe).
	// Shared across graphs so batch mode parses each file once.
	moduleCache *sync.Map // map[string]*Module
}

// NewTracer creates a new Tracer for the given serve root. Web-absolute
// paths ("/node_modules/...") resolve against the root.
func NewTracer(fsys fs.FileSystem, rootDir string) *Tracer {
	return &Tracer{
		fs:          fsys,
		rootDir:     rootDir,
		moduleCache: &sync.Map{},
	}
}

// WithResolver returns a new Tracer that resolves bare specifiers through
// the given resolver instead of each document's declared import map.
func (t *Tracer) WithResolver(r *resolve.Resolver) *Tracer {
	return &Tracer{
		fs:          t.fs,
		rootDir:     t.rootDir,
		resolver:    r,
		moduleCache: t.moduleCache,
	}
}

// TraceHTML scans an HTML file, builds a resolver from its declared import
// map (unless one was supplied with WithResolver), and traces all module
// scripts. A malformed declared map is fatal; a missing one is not.
func (t *Tracer) TraceHTML(htmlPath string) (*ModuleGraph, error) {
	content, err := t.fs.ReadFile(htmlPath)
	if err != nil {
		return nil, err
	}

	doc, err := scan.Scan(content)
	if err != nil {
		return nil, err
	}

	resolver := t.resolver
	if resolver == nil {
		im, err := doc.ImportMap()
		switch {
		case err == nil:
			resolver, err = resolve.New(im)
			if err != nil {
				return nil, err
			}
		case err == scan.ErrNoImportMap:
			// Pages without maps can still use relative imports; bare
			// specifiers will surface as issues.
			resolver, _ = resolve.New(&importmap.ImportMap{Imports: map[string]string{}})
		default:
			return nil, fmt.Errorf("%s: %w", htmlPath, err)
		}
	}

	graph := newGraph()
	htmlDir := filepath.Dir(htmlPath)

	for _, src := range doc.ModuleSrcs {
		modulePath := t.resolvePath(htmlDir, src)
		graph.Entrypoints = append(graph.Entrypoints, modulePath)
		t.traceModule(graph, resolver, modulePath)
	}

	for _, source := range doc.InlineModules {
		imports, err := ExtractImports([]byte(source))
		if err != nil {
			graph.Errors = append(graph.Errors, fmt.Errorf("parsing inline module in %s: %w", htmlPath, err))
			continue
		}
		t.traceImports(graph, resolver, htmlPath, htmlDir, imports)
	}

	return graph, nil
}

// TraceModule traces a single module file and all its dependencies.
// Bare specifiers resolve through the resolver supplied with WithResolver;
// without one, every bare specifier is an issue.
func (t *Tracer) TraceModule(modulePath string) (*ModuleGraph, error) {
	resolver := t.resolver
	if resolver == nil {
		resolver, _ = resolve.New(&importmap.ImportMap{Imports: map[string]string{}})
	}

	graph := newGraph()
	graph.Entrypoints = []string{modulePath}
	if err := t.traceModule(graph, resolver, modulePath); err != nil {
		return nil, err
	}
	return graph, nil
}

func newGraph() *ModuleGraph {
	return &ModuleGraph{
		Modules:     make(map[string]*Module),
		Resolutions: make(map[string]resolve.Resolution),
	}
}

// traceModule recursively traces a module and its dependencies.
// Returns an error only for the module itself; dependency failures are
// recorded on the graph.
func (t *Tracer) traceModule(graph *ModuleGraph, resolver *resolve.Resolver, modulePath string) error {
	// Already traced in this graph?
	if mod, exists := graph.Modules[modulePath]; exists && mod.Traced {
		return nil
	}

	// Try to get cached module (avoid re-parsing)
	var mod *Module
	if cached, ok := t.moduleCache.Load(modulePath); ok {
		cachedMod := cached.(*Module)
		mod = &Module{
			Path:    cachedMod.Path,
			Imports: cachedMod.Imports,
			Traced:  true,
		}
	} else {
		content, err := t.fs.ReadFile(modulePath)
		if err != nil {
			graph.Errors = append(graph.Errors, fmt.Errorf("loading %s: %w", modulePath, err))
			return err
		}

		imports, err := ExtractImports(content)
		if err != nil {
			graph.Errors = append(graph.Errors, fmt.Errorf("parsing %s: %w", modulePath, err))
			return err
		}

		mod = &Module{
			Path:    modulePath,
			Imports: imports,
			Traced:  true,
		}

		t.moduleCache.Store(modulePath, mod)
	}

	graph.Modules[modulePath] = mod

	t.traceImports(graph, resolver, modulePath, filepath.Dir(modulePath), mod.Imports)
	return nil
}

// traceImports resolves and follows a module's imports. The importer's web
// path is the referrer for scope-aware resolution.
func (t *Tracer) traceImports(graph *ModuleGraph, resolver *resolve.Resolver, importer, baseDir string, imports []ModuleImport) {
	referrer := t.webPath(importer)

	for _, imp := range imports {
		if !resolve.IsBare(imp.Specifier) {
			// Relative or web-absolute path - follow directly
			t.traceModule(graph, resolver, t.resolvePath(baseDir, imp.Specifier))
			continue
		}

		res := resolver.ResolveFrom(imp.Specifier, referrer)
		graph.Resolutions[imp.Specifier] = res

		if !res.Resolved {
			graph.Issues = append(graph.Issues, Issue{
				File:      importer,
				Line:      imp.Line,
				Specifier: imp.Specifier,
			})
			continue
		}

		// Remote targets are not walked; they are someone else's build.
		if isRemote(res.Path) {
			continue
		}

		// Targets resolve against the map's base: web-absolute against the
		// serve root, relative against the importing document.
		depPath := t.resolvePath(baseDir, res.Path)
		if !t.fs.Exists(depPath) {
			// Resolution succeeded; the failure belongs to load time,
			// e.g. a specifier that omitted its ".js" extension.
			graph.Errors = append(graph.Errors, fmt.Errorf("loading %s (resolved from %q): file not found", depPath, imp.Specifier))
			continue
		}
		t.traceModule(graph, resolver, depPath)
	}
}

// resolvePath resolves a specifier or target relative to a base directory.
// Web-absolute paths ("/foo") resolve against the serve root.
func (t *Tracer) resolvePath(baseDir, specifier string) string {
	if strings.HasPrefix(specifier, "/") {
		return filepath.Join(t.rootDir, specifier)
	}
	return filepath.Join(baseDir, specifier)
}

// webPath converts a module file path into a root-relative web path,
// used as the referrer for scope matching.
func (t *Tracer) webPath(fullPath string) string {
	relPath, err := filepath.Rel(t.rootDir, fullPath)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return ""
	}
	return "/" + filepath.ToSlash(relPath)
}

func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "data:")
}

// BareSpecifiers returns a sorted slice of all bare specifiers encountered.
func (g *ModuleGraph) BareSpecifiers() []string {
	specifiers := make([]string, 0, len(g.Resolutions))
	for spec := range g.Resolutions {
		specifiers = append(specifiers, spec)
	}
	sort.Strings(specifiers)
	return specifiers
}

// UnresolvedSpecifiers returns the sorted set of specifiers with no map entry.
func (g *ModuleGraph) UnresolvedSpecifiers() []string {
	set := make(map[string]bool)
	for _, issue := range g.Issues {
		set[issue.Specifier] = true
	}
	result := make([]string, 0, len(set))
	for spec := range set {
		result = append(result, spec)
	}
	sort.Strings(result)
	return result
}
