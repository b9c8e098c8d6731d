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
	"runtime"
	"sort"
	"sync"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/resolve"
)

// Policy decides what an unresolved specifier means to the caller.
// The resolver itself never fails on one; this is build-tool policy.
type Policy string

const (
	// PolicyError fails the trace when any specifier is unresolved.
	PolicyError Policy = "error"
	// PolicyWarn reports unresolved specifiers on stderr and continues.
	PolicyWarn Policy = "warn"
	// PolicyExternal silently treats unresolved specifiers as external
	// dependencies.
	PolicyExternal Policy = "external"
)

// ParsePolicy validates a policy flag value.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyError, PolicyWarn, PolicyExternal:
		return Policy(s), nil
	}
	return "", fmt.Errorf("invalid policy %q: must be one of error, warn, external", s)
}

// Options configures tracing.
type Options struct {
	// Map overrides the import maps declared in the traced documents.
	Map *importmap.ImportMap
	// Parallel is the number of parallel workers for batch mode.
	// Defaults to runtime.NumCPU() if <= 0.
	Parallel int
}

// Result holds the outcome of tracing one HTML file.
type Result struct {
	File        string               `json:"file"`
	Modules     []string             `json:"modules"`
	Resolutions []resolve.Resolution `json:"resolutions,omitempty"`
	Unresolved  []Issue              `json:"unresolved,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// newTracerForOptions builds the shared tracer, applying the map override.
func newTracerForOptions(osfs fs.FileSystem, absRoot string, opts Options) (*Tracer, error) {
	tracer := NewTracer(osfs, absRoot)
	if opts.Map != nil {
		resolver, err := resolve.New(opts.Map)
		if err != nil {
			return nil, err
		}
		tracer = tracer.WithResolver(resolver)
	}
	return tracer, nil
}

// TraceSingle traces a single HTML file through its import map.
func TraceSingle(osfs fs.FileSystem, htmlFile, absRoot string, opts Options) (*Result, error) {
	tracer, err := newTracerForOptions(osfs, absRoot, opts)
	if err != nil {
		return nil, err
	}

	graph, err := tracer.TraceHTML(htmlFile)
	if err != nil {
		return nil, err
	}

	return resultFromGraph(htmlFile, absRoot, graph), nil
}

// TraceBatch traces multiple HTML files in parallel.
// Returns a channel of Results that is closed when all files are processed.
func TraceBatch(osfs fs.FileSystem, files []string, absRoot string, opts Options) <-chan Result {
	results := make(chan Result, len(files))

	go func() {
		defer close(results)

		parallel := opts.Parallel
		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		tracer, err := newTracerForOptions(osfs, absRoot, opts)
		if err != nil {
			for _, file := range files {
				results <- Result{File: file, Error: err.Error()}
			}
			return
		}

		jobs := make(chan string, len(files))

		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for htmlFile := range jobs {
					graph, err := tracer.TraceHTML(htmlFile)
					if err != nil {
						results <- Result{File: htmlFile, Error: err.Error()}
						continue
					}
					results <- *resultFromGraph(htmlFile, absRoot, graph)
				}
			})
		}

		for _, file := range files {
			jobs <- file
		}
		close(jobs)

		wg.Wait()
	}()

	return results
}

// resultFromGraph flattens a module graph into a portable, deterministic result.
func resultFromGraph(htmlFile, absRoot string, graph *ModuleGraph) *Result {
	result := &Result{File: htmlFile}

	relativize := func(absPath string) string {
		if rel, err := filepath.Rel(absRoot, absPath); err == nil {
			return rel
		}
		return absPath
	}

	for p := range graph.Modules {
		result.Modules = append(result.Modules, relativize(p))
	}
	sort.Strings(result.Modules)

	for _, spec := range graph.BareSpecifiers() {
		result.Resolutions = append(result.Resolutions, graph.Resolutions[spec])
	}

	result.Unresolved = make([]Issue, len(graph.Issues))
	for i, issue := range graph.Issues {
		issue.File = relativize(issue.File)
		result.Unresolved[i] = issue
	}
	if len(result.Unresolved) == 0 {
		result.Unresolved = nil
	}

	for _, err := range graph.Errors {
		result.Warnings = append(result.Warnings, err.Error())
	}

	return result
}
