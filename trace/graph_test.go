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
package trace_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/internal/mapfs"
	"github.com/daKmoR/esmap/resolve"
	"github.com/daKmoR/esmap/testutil"
	"github.com/daKmoR/esmap/trace"
)

func TestTraceHTML(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "trace/basic-project", "/app")
	tracer := trace.NewTracer(mfs, "/app")

	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	if !reflect.DeepEqual(graph.Entrypoints, []string{"/app/src/main.js"}) {
		t.Errorf("Entrypoints = %v", graph.Entrypoints)
	}

	wantModules := []string{
		"/app/node_modules/lit-html/directives/repeat.js",
		"/app/node_modules/lit-html/lit-html.js",
		"/app/src/helper.js",
		"/app/src/lazy.js",
		"/app/src/main.js",
	}
	for _, m := range wantModules {
		if _, ok := graph.Modules[m]; !ok {
			t.Errorf("module %s missing from graph", m)
		}
	}
	if len(graph.Modules) != len(wantModules) {
		t.Errorf("graph has %d modules, want %d", len(graph.Modules), len(wantModules))
	}

	if got := graph.BareSpecifiers(); !reflect.DeepEqual(got, []string{"graphql", "lit-html", "lit-html/directives/repeat.js"}) {
		t.Errorf("BareSpecifiers = %v", got)
	}

	if res := graph.Resolutions["lit-html"]; !res.Resolved || res.Path != "/node_modules/lit-html/lit-html.js" {
		t.Errorf("lit-html resolution = %+v", res)
	}
	if res := graph.Resolutions["lit-html/directives/repeat.js"]; !res.Resolved || res.Key != "lit-html/" {
		t.Errorf("repeat.js resolution = %+v", res)
	}
	if res := graph.Resolutions["graphql"]; res.Resolved {
		t.Errorf("graphql should be unresolved, got %+v", res)
	}

	if !reflect.DeepEqual(graph.UnresolvedSpecifiers(), []string{"graphql"}) {
		t.Errorf("UnresolvedSpecifiers = %v", graph.UnresolvedSpecifiers())
	}
	if len(graph.Issues) != 1 {
		t.Fatalf("Issues = %+v, want one", graph.Issues)
	}
	issue := graph.Issues[0]
	if issue.File != "/app/src/main.js" || issue.Line != 4 || issue.Specifier != "graphql" {
		t.Errorf("Issue = %+v", issue)
	}

	if len(graph.Errors) != 0 {
		t.Errorf("unexpected errors: %v", graph.Errors)
	}
}

func TestTraceHTMLNoMap(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="module" src="/main.js"></script>`, 0644)
	mfs.AddFile("/app/main.js", `import 'lit-html';`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	// Without a declared map every bare specifier is an issue.
	if !reflect.DeepEqual(graph.UnresolvedSpecifiers(), []string{"lit-html"}) {
		t.Errorf("UnresolvedSpecifiers = %v", graph.UnresolvedSpecifiers())
	}
}

func TestTraceHTMLMalformedMap(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="importmap">{"scopes": {}}</script>`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	_, err := tracer.TraceHTML("/app/index.html")
	if err == nil {
		t.Fatal("TraceHTML should fail on a malformed declared map")
	}
	if !importmap.IsMalformed(err) {
		t.Errorf("error should be a malformed-map error, got: %v", err)
	}
}

func TestTraceHTMLInlineModule(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="importmap">
{"imports": {"lit-html": "/vendor/lit-html.js"}}
</script>
<script type="module">
import 'lit-html';
import './inline-dep.js';
</script>`, 0644)
	mfs.AddFile("/app/vendor/lit-html.js", `export function render() {}`, 0644)
	mfs.AddFile("/app/inline-dep.js", `export const dep = 1;`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	if res := graph.Resolutions["lit-html"]; !res.Resolved {
		t.Errorf("inline module import should resolve, got %+v", res)
	}
	if _, ok := graph.Modules["/app/inline-dep.js"]; !ok {
		t.Error("relative import from inline module should be traced")
	}
	if _, ok := graph.Modules["/app/vendor/lit-html.js"]; !ok {
		t.Error("resolved bare import should be traced")
	}
}

func TestTraceMissingFile(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="importmap">
{"imports": {"lit-html/": "/node_modules/lit-html/"}}
</script>
<script type="module" src="/main.js"></script>`, 0644)
	// Resolution succeeds, but the mapped file does not exist: the specifier
	// omitted its extension and no elision is performed.
	mfs.AddFile("/app/main.js", `import 'lit-html/directives/repeat';`, 0644)
	mfs.AddFile("/app/node_modules/lit-html/directives/repeat.js", `export function repeat() {}`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	if res := graph.Resolutions["lit-html/directives/repeat"]; !res.Resolved {
		t.Fatalf("resolution itself should succeed, got %+v", res)
	}
	if len(graph.Issues) != 0 {
		t.Errorf("a resolved-but-missing target is not an unresolved issue: %+v", graph.Issues)
	}
	if len(graph.Errors) != 1 || !strings.Contains(graph.Errors[0].Error(), "file not found") {
		t.Errorf("Errors = %v, want one file-not-found load error", graph.Errors)
	}
}

func TestTraceScopedResolution(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="importmap">
{
  "imports": {"lit-html": "/node_modules/lit-html/lit-html.js"},
  "scopes": {
    "/node_modules/lit-element/": {
      "lit-html": "/node_modules/lit-element/node_modules/lit-html/lit-html.js"
    }
  }
}
</script>
<script type="module" src="/node_modules/lit-element/lit-element.js"></script>`, 0644)
	mfs.AddFile("/app/node_modules/lit-element/lit-element.js", `import 'lit-html';`, 0644)
	mfs.AddFile("/app/node_modules/lit-element/node_modules/lit-html/lit-html.js", `export function render() {}`, 0644)
	mfs.AddFile("/app/node_modules/lit-html/lit-html.js", `export function render() {}`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	res := graph.Resolutions["lit-html"]
	if res.Scope != "/node_modules/lit-element/" {
		t.Errorf("import from scoped referrer should use the scope, got %+v", res)
	}
	if _, ok := graph.Modules["/app/node_modules/lit-element/node_modules/lit-html/lit-html.js"]; !ok {
		t.Error("scoped target should be traced")
	}
}

func TestTraceModuleWithResolver(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/main.js", `import 'lit-html';`, 0644)
	mfs.AddFile("/app/vendor/lit-html.js", `export function render() {}`, 0644)

	resolver, err := resolve.New(&importmap.ImportMap{
		Imports: map[string]string{"lit-html": "/vendor/lit-html.js"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tracer := trace.NewTracer(mfs, "/app").WithResolver(resolver)
	graph, err := tracer.TraceModule("/app/main.js")
	if err != nil {
		t.Fatalf("TraceModule failed: %v", err)
	}

	if res := graph.Resolutions["lit-html"]; !res.Resolved || res.Path != "/vendor/lit-html.js" {
		t.Errorf("supplied resolver should be used, got %+v", res)
	}
}

func TestTraceRemoteTarget(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/index.html", `<script type="importmap">
{"imports": {"lit-html": "https://cdn.example.com/lit-html.js"}}
</script>
<script type="module" src="/main.js"></script>`, 0644)
	mfs.AddFile("/app/main.js", `import 'lit-html';`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceHTML("/app/index.html")
	if err != nil {
		t.Fatalf("TraceHTML failed: %v", err)
	}

	if res := graph.Resolutions["lit-html"]; !res.Resolved {
		t.Errorf("remote target should still resolve, got %+v", res)
	}
	if len(graph.Errors) != 0 {
		t.Errorf("remote targets are not walked and not errors: %v", graph.Errors)
	}
	if len(graph.Modules) != 1 {
		t.Errorf("only the local entrypoint should be in the graph: %v", graph.Modules)
	}
}

func TestTraceCycle(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/a.js", `import './b.js'; export const a = 1;`, 0644)
	mfs.AddFile("/app/b.js", `import './a.js'; export const b = 2;`, 0644)

	tracer := trace.NewTracer(mfs, "/app")
	graph, err := tracer.TraceModule("/app/a.js")
	if err != nil {
		t.Fatalf("TraceModule failed: %v", err)
	}
	if len(graph.Modules) != 2 {
		t.Errorf("cyclic imports should terminate with 2 modules, got %d", len(graph.Modules))
	}
}
